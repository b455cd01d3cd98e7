package git

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/retry"
)

type step struct {
	out  Output
	code int // non-zero produces an *ExitError
}

// fakeRunner replays scripted results keyed by the git subcommand.
type fakeRunner struct {
	mu     sync.Mutex
	script map[string][]step
	calls  []string
}

func newFakeRunner() *fakeRunner { return &fakeRunner{script: map[string][]step{}} }

func (f *fakeRunner) on(sub string, steps ...step) *fakeRunner {
	f.script[sub] = append(f.script[sub], steps...)
	return f
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.Join(args, " "))
	sub := args[0]
	steps := f.script[sub]
	if len(steps) == 0 {
		return Output{}, nil
	}
	s := steps[0]
	if len(steps) > 1 {
		f.script[sub] = steps[1:]
	}
	if s.code != 0 {
		s.out.ExitCode = s.code
		return s.out, &ExitError{Args: args, Output: s.out}
	}
	return s.out, nil
}

func fastRetry() retry.Policy {
	return retry.NewPolicy(retry.ModeFixed, time.Millisecond, time.Millisecond, 2)
}

func TestPublish_UpToDateIsSuccess(t *testing.T) {
	r := newFakeRunner()
	out := outcome.Discard()

	res, err := NewPublisher(t.TempDir(), WithRunner(r)).Publish(context.Background(), out)
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	assert.False(t, res.Pushed)
	assert.Equal(t, []string{"add .", "diff --cached --quiet"}, r.calls)

	var found bool
	for _, m := range out.Messages() {
		if m.Message == "Repository already up to date - no changes to publish" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPublish_CommitsAndPushes(t *testing.T) {
	r := newFakeRunner().
		on("diff", step{code: 1}).
		on("commit", step{out: Output{Stdout: "[main abc123] Published blog post"}}).
		on("push", step{out: Output{Stderr: "To github.com:me/site.git"}})

	res, err := NewPublisher(t.TempDir(), WithRunner(r), WithCommitMessage("New post"), WithRemote("origin")).
		Publish(context.Background(), outcome.Discard())
	require.NoError(t, err)
	assert.False(t, res.UpToDate)
	assert.True(t, res.Pushed)
	assert.Equal(t, []string{"add .", "diff --cached --quiet", "commit -m New post", "push origin"}, r.calls)
}

func TestPublish_StepFailuresAreTerminal(t *testing.T) {
	tests := []struct {
		name  string
		r     *fakeRunner
		calls int
	}{
		{"add", newFakeRunner().on("add", step{code: 128, out: Output{Stderr: "fatal: not a git repository"}}), 1},
		{"diff", newFakeRunner().on("diff", step{code: 129, out: Output{Stderr: "usage"}}), 2},
		{"commit", newFakeRunner().on("diff", step{code: 1}).on("commit", step{code: 1, out: Output{Stderr: "Please tell me who you are"}}), 3},
		{"push", newFakeRunner().on("diff", step{code: 1}).on("push", step{code: 1, out: Output{Stderr: "! [rejected] main -> main (fetch first)"}}), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := outcome.Discard()
			_, err := NewPublisher(t.TempDir(), WithRunner(tt.r), WithPushRetry(fastRetry())).Publish(context.Background(), out)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGit))
			assert.Equal(t, ferrors.ExitProcessing, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
			assert.Len(t, tt.r.calls, tt.calls)
			assert.Equal(t, 1, out.Count(outcome.LevelError))
		})
	}
}

func TestPublish_CapturedOutputInError(t *testing.T) {
	r := newFakeRunner().on("add", step{code: 128, out: Output{Stderr: "fatal: not a git repository (or any of the parent directories): .git"}})
	_, err := NewPublisher(t.TempDir(), WithRunner(r)).Publish(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	reason, _ := ce.Context().GetString("reason")
	assert.Equal(t, "not_repository", reason)
}

func TestPush_RetriesTransientFailures(t *testing.T) {
	r := newFakeRunner().
		on("diff", step{code: 1}).
		on("push",
			step{code: 128, out: Output{Stderr: "fatal: unable to access: Could not resolve host: github.com"}},
			step{})

	res, err := NewPublisher(t.TempDir(), WithRunner(r), WithPushRetry(fastRetry())).Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.Equal(t, 2, strings.Count(strings.Join(r.calls, "\n"), "push"))
}

func TestPush_GivesUpAfterPolicy(t *testing.T) {
	transient := step{code: 128, out: Output{Stderr: "Could not resolve host: github.com"}}
	r := newFakeRunner().on("push", transient)

	_, err := NewPublisher(t.TempDir(), WithRunner(r), WithPushRetry(fastRetry())).Push(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Len(t, r.calls, 3)
}

func TestCommit_NothingToCommit(t *testing.T) {
	_, err := NewPublisher(t.TempDir(), WithRunner(newFakeRunner())).Commit(context.Background())
	require.ErrorIs(t, err, ErrNothingToCommit)
}

func TestClassifyGitError(t *testing.T) {
	cases := map[string]string{
		"fatal: Authentication failed for 'https://x'":           "auth",
		"Could not resolve host: github.com":                     "network",
		"error: failed to push some refs (non-fast-forward)":     "diverged",
		"fatal: The current branch main has no upstream branch.": "no_upstream",
	}
	for msg, reason := range cases {
		err := ClassifyGitError(fmt.Errorf("%s", msg), "push", "/site")
		ce, ok := ferrors.AsClassified(err)
		require.True(t, ok)
		got, _ := ce.Context().GetString("reason")
		assert.Equal(t, reason, got, msg)
	}
	assert.Nil(t, ClassifyGitError(nil, "push", "/site"))

	already := ferrors.ProcessingError("x").Build()
	assert.Same(t, already, ClassifyGitError(already, "push", "/site"))
}

func TestExitError(t *testing.T) {
	err := &ExitError{Args: []string{"push"}, Output: Output{Stderr: "denied", ExitCode: 1}}
	assert.Equal(t, "git push exited with status 1: denied", err.Error())
	assert.Equal(t, 1, ExitCodeOf(err))
	assert.Equal(t, -1, ExitCodeOf(fmt.Errorf("plain")))
}
