package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/jekyllpress/internal/config"
	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
	"git.home.luguber.info/inful/jekyllpress/internal/publish"
	"git.home.luguber.info/inful/jekyllpress/internal/watch"
)

// WatchCmd runs a mode once and again after every change to the post or its images.
type WatchCmd struct {
	PostArg
	Mode         string        `short:"m" default:"convert" enum:"convert,local,remote,both" help:"Mode run on every change (convert, local, remote, both)"`
	PublishEvery time.Duration `name:"publish-every" help:"Also run the git publish sequence at this interval (e.g. 10m)"`
	Debounce     time.Duration `default:"300ms" help:"Quiet period after the last change"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	g.summarize(fmt.Sprintf("Stopped watching '%s'", w.Post), fmt.Sprintf("Failed to watch '%s'", w.Post))

	mode, err := post.ParseMode(w.Mode)
	if err != nil {
		return g.Out.Fail(ferrors.ValidationError(err.Error()).Build())
	}
	cfg, err := config.Load(root.Config, g.Out)
	if err != nil {
		return g.Out.Fail(err)
	}
	a := newApp(g, cfg)
	defer a.close()

	orch := a.orchestrator(previewStyle(cfg), cfg.Preview.OpenBrowser)
	req := post.Request{Identifier: w.Post, Mode: mode}
	runOnce := func(ctx context.Context) error {
		_, err := orch.Run(ctx, req, g.Out)
		a.flushMetrics()
		return err
	}

	// A failed first run is reported and watching continues; the post may
	// be fixed on the next save.
	_ = runOnce(g.Context)

	var publishFn watch.RunFunc
	if w.PublishEvery > 0 {
		publishFn = func(ctx context.Context) error {
			_, err := a.publisher.Publish(ctx, g.Out)
			return err
		}
	}

	paths := post.Resolve(w.Post, cfg)
	watcher := watch.New(watch.Config{
		Post:         paths.SourcePost,
		ImageDir:     paths.SourceImageDir,
		Debounce:     w.Debounce,
		PublishEvery: w.PublishEvery,
	}, runOnce, publishFn, watch.WithLogger(g.Logger))

	g.Out.Info("Watching %s (Ctrl+C to stop)", paths.SourcePost)
	if err := watcher.Run(g.Context); err != nil {
		return g.Out.Fail(ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to watch for changes").Build())
	}
	return nil
}

// previewStyle never blocks inside the watch loop.
func previewStyle(cfg *config.Config) publish.PreviewStyle {
	if cfg.Preview.Wait {
		return publish.PreviewWait
	}
	return publish.PreviewBackground
}
