package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/jekyllpress/internal/config"
	"git.home.luguber.info/inful/jekyllpress/internal/convert"
	"git.home.luguber.info/inful/jekyllpress/internal/git"
	"git.home.luguber.info/inful/jekyllpress/internal/history"
	"git.home.luguber.info/inful/jekyllpress/internal/imagelinks"
	"git.home.luguber.info/inful/jekyllpress/internal/metrics"
	"git.home.luguber.info/inful/jekyllpress/internal/notify"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/preview"
	"git.home.luguber.info/inful/jekyllpress/internal/publish"
)

// app is the set of components built from one configuration.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       *outcome.Outcome
	prom      *metrics.PrometheusRecorder // nil unless a textfile is configured
	recorder  metrics.Recorder
	pipeline  *convert.Pipeline
	server    *preview.Server
	publisher *git.Publisher
	observers []publish.Observer
	closers   []func()
}

// newApp wires the components. Optional sinks that fail to open are reported
// as warnings and left out.
func newApp(g *Global, cfg *config.Config) *app {
	a := &app{cfg: cfg, logger: g.Logger, out: g.Out, recorder: metrics.NoopRecorder{}}

	if cfg.Metrics.Textfile != "" {
		a.prom = metrics.NewPrometheusRecorder(nil)
		a.recorder = a.prom
	}

	transformer := imagelinks.New(
		imagelinks.WithExtensions(cfg.Images.Extensions...),
		imagelinks.WithURLPrefix(cfg.Images.URLPrefix),
		imagelinks.WithDefaultAlt(cfg.Images.DefaultAlt),
		imagelinks.WithLogger(g.Logger),
	)
	a.pipeline = convert.New(cfg,
		convert.WithTransformer(transformer),
		convert.WithRecorder(a.recorder),
		convert.WithLogger(g.Logger),
	)
	a.server = preview.NewServer(cfg.PreviewServer(),
		preview.WithRecorder(a.recorder),
		preview.WithLogger(g.Logger),
	)
	a.publisher = git.NewPublisher(cfg.SiteRoot(),
		git.WithCommitMessage(cfg.Git.CommitMessage),
		git.WithRemote(cfg.Git.Remote),
		git.WithPushRetry(cfg.PushRetryPolicy()),
		git.WithRecorder(a.recorder),
		git.WithLogger(g.Logger),
	)

	if cfg.History.Path != "" {
		ledger, err := history.Open(cfg.History.Path)
		if err != nil {
			g.Out.Warning("History disabled: %v", err)
		} else {
			a.observers = append(a.observers, ledger)
			a.closers = append(a.closers, func() { _ = ledger.Close() })
		}
	}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject, g.Logger)
		if err != nil {
			g.Out.Warning("Notifications disabled: %v", err)
		} else {
			a.observers = append(a.observers, n)
			a.closers = append(a.closers, n.Close)
		}
	}
	return a
}

// orchestrator returns an orchestrator over the app's components.
func (a *app) orchestrator(style publish.PreviewStyle, open bool) *publish.Orchestrator {
	opts := []publish.Option{
		publish.WithPreviewStyle(style),
		publish.WithOpenBrowser(open),
		publish.WithRecorder(a.recorder),
		publish.WithLogger(a.logger),
	}
	for _, obs := range a.observers {
		opts = append(opts, publish.WithObserver(obs))
	}
	return publish.New(a.pipeline, a.server, a.publisher, opts...)
}

// flushMetrics writes the textfile when one is configured.
func (a *app) flushMetrics() {
	if a.prom == nil {
		return
	}
	if err := a.prom.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.out.Warning("Failed to write metrics: %v", err)
	}
}

func (a *app) close() {
	a.flushMetrics()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
