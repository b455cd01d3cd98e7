// Package publish dispatches a conversion request by publishing mode:
// convert only, convert and preview locally, convert and push, or both.
package publish

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/jekyllpress/internal/convert"
	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/git"
	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
	"git.home.luguber.info/inful/jekyllpress/internal/metrics"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
	"git.home.luguber.info/inful/jekyllpress/internal/preview"
)

// Converter runs the conversion pipeline.
type Converter interface {
	Convert(ctx context.Context, req post.Request, out *outcome.Outcome) (convert.Result, error)
}

// Previewer controls the local preview server.
type Previewer interface {
	URL() string
	Running(ctx context.Context) bool
	Launch(ctx context.Context) (preview.Detached, error)
	LaunchAndWait(ctx context.Context) (*preview.Process, error)
	Serve(ctx context.Context) error
}

// GitPublisher runs the git publish sequence.
type GitPublisher interface {
	Publish(ctx context.Context, out *outcome.Outcome) (git.PublishResult, error)
}

// Observer receives the report of every run. Errors are logged as warnings
// and never change the run's result.
type Observer interface {
	Observe(ctx context.Context, r Report) error
}

// PreviewStyle selects how the preview server is started.
type PreviewStyle int

const (
	// PreviewBackground launches the server and returns without waiting.
	PreviewBackground PreviewStyle = iota
	// PreviewWait launches the server and waits, bounded, until it answers.
	PreviewWait
	// PreviewForeground runs the server until it exits or is interrupted.
	PreviewForeground
)

// PreviewReport describes what happened to the preview server.
type PreviewReport struct {
	AlreadyRunning bool   `json:"already_running"`
	Started        bool   `json:"started"`
	PID            int    `json:"pid,omitempty"`
	URL            string `json:"url"`
	Error          string `json:"error,omitempty"`
}

// Report is the structured result of one run.
type Report struct {
	RunID      string             `json:"run_id"`
	Request    post.Request       `json:"request"`
	Started    time.Time          `json:"started"`
	Duration   time.Duration      `json:"duration"`
	Conversion convert.Result     `json:"-"`
	Preview    *PreviewReport     `json:"preview,omitempty"`
	Publish    *git.PublishResult `json:"publish,omitempty"`
	Err        error              `json:"-"`
}

// Succeeded reports whether the run ended without a terminal error.
func (r Report) Succeeded() bool { return r.Err == nil }

// Orchestrator composes conversion, preview and git publishing.
type Orchestrator struct {
	converter Converter
	previewer Previewer
	publisher GitPublisher
	observers []Observer
	style     PreviewStyle
	open      bool
	opener    func(ctx context.Context, url string) error
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreviewStyle selects background, bounded-wait or foreground preview.
func WithPreviewStyle(s PreviewStyle) Option { return func(o *Orchestrator) { o.style = s } }

// WithOpenBrowser opens the preview URL once the server is known to be up.
func WithOpenBrowser(open bool) Option { return func(o *Orchestrator) { o.open = open } }

// WithBrowserOpener replaces the browser launcher.
func WithBrowserOpener(fn func(ctx context.Context, url string) error) Option {
	return func(o *Orchestrator) { o.opener = fn }
}

// WithObserver registers a report observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// New returns an Orchestrator. previewer and publisher may be nil when the
// modes that need them are never requested.
func New(c Converter, p Previewer, g GitPublisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		converter: c,
		previewer: p,
		publisher: g,
		opener:    preview.OpenBrowser,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run converts the post and then acts on the requested mode. Every failure is
// recorded on out before it is returned.
func (o *Orchestrator) Run(ctx context.Context, req post.Request, out *outcome.Outcome) (Report, error) {
	if out == nil {
		out = outcome.Discard()
	}
	rep := Report{RunID: out.RunID(), Request: req, Started: time.Now()}
	logger := o.logger.With(logfields.RunID(rep.RunID), logfields.Mode(string(req.Mode)))

	rep.Err = o.run(ctx, req, out, &rep)
	rep.Duration = time.Since(rep.Started)

	status := ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(rep.Err).String()
	o.recorder.ObserveRunDuration(string(req.Mode), rep.Duration)
	o.recorder.IncRunOutcome(string(req.Mode), status)
	logger.Debug("Run finished", slog.String("status", status), logfields.Elapsed(rep.Duration))

	o.notify(ctx, rep, out)
	return rep, rep.Err
}

// ObserverTimeout bounds the post-run hooks of one run.
const ObserverTimeout = 5 * time.Second

// notify hands the report to every observer. Hooks run even when ctx was
// canceled, so interrupted and user-stopped runs are still recorded.
func (o *Orchestrator) notify(ctx context.Context, rep Report, out *outcome.Outcome) {
	if len(o.observers) == 0 {
		return
	}
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ObserverTimeout)
	defer cancel()
	for _, obs := range o.observers {
		if err := obs.Observe(hookCtx, rep); err != nil {
			out.Warning("Post-run hook failed: %v", err)
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, req post.Request, out *outcome.Outcome, rep *Report) error {
	if !validMode(req.Mode) {
		return out.Fail(ferrors.ValidationError("Unknown publishing mode: " + string(req.Mode)).Build())
	}

	res, err := o.converter.Convert(ctx, req, out)
	rep.Conversion = res
	if err != nil {
		return err
	}

	switch req.Mode {
	case post.ModeConvertOnly:
		out.Log("Conversion complete. No publishing requested.")
		return nil

	case post.ModeLocalOnly:
		pr, err := o.preview(ctx, out)
		rep.Preview = &pr
		if err != nil {
			return out.Fail(interrupted(ctx, err))
		}
		return nil

	case post.ModeRemoteOnly:
		out.Log("Publishing to remote repository...")
		return o.publish(ctx, out, rep)

	case post.ModeBoth:
		if o.style == PreviewForeground {
			// A blocking server would hold the push back indefinitely.
			if err := o.publish(ctx, out, rep); err != nil {
				return err
			}
			pr, err := o.preview(ctx, out)
			rep.Preview = &pr
			if err != nil {
				out.Warning("Preview server not available: %v", err)
			}
			return nil
		}
		pr, err := o.preview(ctx, out)
		rep.Preview = &pr
		if err != nil {
			out.Warning("Preview server not available: %v", err)
		}
		out.Info("Publishing to remote repository...")
		return o.publish(ctx, out, rep)
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, out *outcome.Outcome, rep *Report) error {
	if o.publisher == nil {
		return out.Fail(ferrors.InternalError("git publisher not configured").Build())
	}
	res, err := o.publisher.Publish(ctx, out)
	rep.Publish = &res
	if err != nil && ctx.Err() != nil {
		// Already recorded by the publisher; only the classification changes.
		return interrupted(ctx, err)
	}
	return err
}

// preview starts the server according to the configured style. It does not
// record errors; the caller decides whether a failure is terminal.
func (o *Orchestrator) preview(ctx context.Context, out *outcome.Outcome) (PreviewReport, error) {
	if o.previewer == nil {
		return PreviewReport{}, ferrors.InternalError("preview server not configured").Build()
	}
	url := o.previewer.URL()
	pr := PreviewReport{URL: url}

	out.Log("Checking for existing Jekyll server...")
	if o.previewer.Running(ctx) {
		pr.AlreadyRunning = true
		out.Info("Jekyll server already running")
		out.Info("Available at: %s", url)
		o.openBrowser(ctx, out, url)
		return pr, nil
	}

	switch o.style {
	case PreviewWait:
		out.Info("Starting Jekyll server...")
		proc, err := o.previewer.LaunchAndWait(ctx)
		if err != nil {
			pr.Error = err.Error()
			return pr, err
		}
		pr.Started, pr.PID = true, proc.PID
		out.Info("Jekyll server started successfully")
		out.Info("Available at: %s", url)
		out.Log("Preview server log: %s", proc.LogPath)
		o.openBrowser(ctx, out, url)

	case PreviewForeground:
		out.Info("Starting Jekyll server...")
		out.Info("Server will be available at: %s", url)
		out.Log("Press Ctrl+C to stop the server")
		pr.Started = true
		if err := o.previewer.Serve(ctx); err != nil {
			pr.Error = err.Error()
			return pr, err
		}
		if ctx.Err() != nil {
			out.Info("Jekyll server stopped by user")
		} else {
			out.Success("Jekyll server stopped")
		}

	default:
		out.Info("Starting Jekyll server in background...")
		d, err := o.previewer.Launch(ctx)
		if err != nil {
			pr.Error = err.Error()
			return pr, err
		}
		pr.Started, pr.PID = true, d.PID
		out.Info("Server will be available at %s in 30-60 seconds", url)
	}
	return pr, nil
}

func (o *Orchestrator) openBrowser(ctx context.Context, out *outcome.Outcome, url string) {
	if !o.open || o.opener == nil {
		return
	}
	if err := o.opener(ctx, url); err != nil {
		out.Log("Could not open browser automatically: %v", err)
		return
	}
	out.Log("Browser opened to %s", url)
}

func validMode(m post.Mode) bool {
	for _, known := range post.Modes {
		if m == known {
			return true
		}
	}
	return false
}

// interrupted reclassifies err as a user interrupt when ctx was canceled.
func interrupted(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	return ferrors.WrapError(err, ferrors.CategoryProcessing, "Process interrupted by user").Build()
}
