package git

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
	"git.home.luguber.info/inful/jekyllpress/internal/metrics"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/retry"
)

// DefaultCommitMessage is used when no message is configured.
const DefaultCommitMessage = "Published blog post"

// PublishResult describes what the publish sequence did.
type PublishResult struct {
	UpToDate bool   `json:"up_to_date"`       // nothing staged; no commit or push happened
	Commit   string `json:"commit,omitempty"` // HEAD after the commit, when go-git could read it
	Pushed   bool   `json:"pushed"`
}

// Publisher runs add, staged-diff check, commit and push in one directory.
type Publisher struct {
	dir      string
	message  string
	remote   string
	runner   Runner
	push     retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithRunner replaces the git runner.
func WithRunner(r Runner) PublisherOption { return func(p *Publisher) { p.runner = r } }

// WithCommitMessage sets the commit message.
func WithCommitMessage(msg string) PublisherOption {
	return func(p *Publisher) {
		if msg != "" {
			p.message = msg
		}
	}
}

// WithRemote pushes to a named remote instead of git's default push target.
func WithRemote(remote string) PublisherOption { return func(p *Publisher) { p.remote = remote } }

// WithPushRetry sets the policy for retrying pushes that failed with a
// transient network error.
func WithPushRetry(policy retry.Policy) PublisherOption {
	return func(p *Publisher) { p.push = policy }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) PublisherOption {
	return func(p *Publisher) { p.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PublisherOption { return func(p *Publisher) { p.logger = l } }

// NewPublisher returns a Publisher for the repository at dir.
func NewPublisher(dir string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		dir:      dir,
		message:  DefaultCommitMessage,
		runner:   ExecRunner{},
		push:     retry.NewPolicy(retry.ModeLinear, time.Second, 5*time.Second, 2),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dir returns the repository directory.
func (p *Publisher) Dir() string { return p.dir }

// Stage runs "git add .".
func (p *Publisher) Stage(ctx context.Context) error {
	if _, err := p.runner.Run(ctx, p.dir, "add", "."); err != nil {
		return ClassifyGitError(err, "add", p.dir)
	}
	return nil
}

// HasStagedChanges compares the index with HEAD. Exit status 0 means no
// difference, 1 means changes; anything else is an error.
func (p *Publisher) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := p.runner.Run(ctx, p.dir, "diff", "--cached", "--quiet")
	switch {
	case err == nil:
		return false, nil
	case ExitCodeOf(err) == 1:
		return true, nil
	default:
		return false, ClassifyGitError(err, "diff", p.dir)
	}
}

// Commit commits the staged tree. It returns ErrNothingToCommit when the
// index matches HEAD.
func (p *Publisher) Commit(ctx context.Context) (Output, error) {
	changed, err := p.HasStagedChanges(ctx)
	if err != nil {
		return Output{}, err
	}
	if !changed {
		return Output{}, ErrNothingToCommit
	}
	out, err := p.runner.Run(ctx, p.dir, "commit", "-m", p.message)
	if err != nil {
		return out, ClassifyGitError(err, "commit", p.dir)
	}
	return out, nil
}

// Push pushes the current branch, retrying transient network failures.
func (p *Publisher) Push(ctx context.Context) (Output, error) {
	args := []string{"push"}
	if p.remote != "" {
		args = append(args, p.remote)
	}
	var out Output
	var pushErr error
	err := p.push.Do(ctx, func(ctx context.Context, attempt int) (bool, error) {
		if attempt > 0 {
			p.logger.Warn("Retrying git push", slog.Int("attempt", attempt), logfields.Error(pushErr))
		}
		var err error
		out, err = p.runner.Run(ctx, p.dir, args...)
		if err == nil {
			return true, nil
		}
		pushErr = ClassifyGitError(err, "push", p.dir)
		if !IsTransient(pushErr) {
			return false, pushErr
		}
		return false, nil
	})
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, retry.ErrExhausted):
		return out, pushErr
	default:
		return out, ClassifyGitError(err, "push", p.dir)
	}
}

// Publish runs the whole sequence and reports progress on out. An unchanged
// tree is a successful no-op.
func (p *Publisher) Publish(ctx context.Context, out *outcome.Outcome) (PublishResult, error) {
	if out == nil {
		out = outcome.Discard()
	}
	res := PublishResult{}

	out.Log("Adding files to git staging...")
	if err := p.Stage(ctx); err != nil {
		return res, p.fail(out, err)
	}

	out.Log("Committing changes...")
	commitOut, err := p.Commit(ctx)
	if errors.Is(err, ErrNothingToCommit) {
		res.UpToDate = true
		p.recorder.IncPublishResult(metrics.PublishUpToDate)
		out.Info("Repository already up to date - no changes to publish")
		out.Log("No changes to commit - files already up to date")
		return res, nil
	}
	if err != nil {
		return res, p.fail(out, err)
	}
	out.Info("Changes committed to local repository")
	if commitOut.Stdout != "" {
		out.Log("Commit output: %s", commitOut.Stdout)
	}
	if head, herr := HeadCommit(p.dir); herr == nil {
		res.Commit = head
		p.logger.Debug("Committed", logfields.Commit(head))
	}

	out.Log("Pushing to remote repository...")
	pushOut, err := p.Push(ctx)
	if err != nil {
		return res, p.fail(out, err)
	}
	res.Pushed = true
	p.recorder.IncPublishResult(metrics.PublishCommitted)
	out.Info("Blog post published")
	if pushOut.Stdout != "" {
		out.Log("Push output: %s", pushOut.Stdout)
	}
	if pushOut.Stderr != "" {
		out.Log("Push details: %s", pushOut.Stderr)
	}
	return res, nil
}

func (p *Publisher) fail(out *outcome.Outcome, err error) error {
	p.recorder.IncPublishResult(metrics.PublishFailed)
	return out.Fail(err)
}
