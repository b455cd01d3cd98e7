// Package watch re-runs a conversion when its source post or images change,
// and optionally publishes on a fixed schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc performs one run. Errors are logged and the watcher keeps going.
type RunFunc func(ctx context.Context) error

// Config selects what is watched.
type Config struct {
	Post         string        // absolute path of the source post
	ImageDir     string        // source images folder, watched recursively
	Debounce     time.Duration // zero means DefaultDebounce
	PublishEvery time.Duration // zero disables the periodic publish job
}

// Watcher runs onChange after filesystem changes and onPublish periodically.
// The two never run concurrently.
type Watcher struct {
	cfg       Config
	onChange  RunFunc
	onPublish RunFunc
	logger    *slog.Logger

	mu sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New returns a Watcher. onPublish may be nil when cfg.PublishEvery is zero.
func New(cfg Config, onChange, onPublish RunFunc, opts ...Option) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	cfg.Post = filepath.Clean(cfg.Post)
	if cfg.ImageDir != "" {
		cfg.ImageDir = filepath.Clean(cfg.ImageDir)
	}
	w := &Watcher{cfg: cfg, onChange: onChange, onPublish: onPublish, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is canceled or the watcher fails. Cancellation is a
// clean stop and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.PublishEvery > 0 && w.onPublish == nil {
		return errors.New("periodic publish requested without a publish function")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	// Editors replace files atomically, so the post is watched via its directory.
	if err := fsw.Add(filepath.Dir(w.cfg.Post)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.cfg.Post), err)
	}
	if w.cfg.ImageDir != "" {
		if err := addDirsRecursive(fsw, w.cfg.ImageDir, w.logger); err != nil {
			return err
		}
	}

	if w.cfg.PublishEvery > 0 {
		sched, err := w.schedule(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				w.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	requests, trigger, stop := debouncer(w.cfg.Debounce)
	defer stop()

	workCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-workCtx.Done():
				return
			case <-requests:
				w.guarded(workCtx, "change", w.onChange)
			}
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	w.logger.Info("Watching for changes", logfields.Path(w.cfg.Post), slog.String("images", w.cfg.ImageDir))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped watching")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.cfg.PublishEvery),
		gocron.NewTask(func() { w.guarded(ctx, "publish", w.onPublish) }),
		gocron.WithName("periodic-publish"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic publish job: %w", err)
	}
	s.Start()
	w.logger.Info("Scheduled periodic publish", slog.Duration("every", w.cfg.PublishEvery))
	return s, nil
}

func (w *Watcher) guarded(ctx context.Context, kind string, fn RunFunc) {
	if ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	start := time.Now()
	if err := fn(ctx); err != nil {
		w.logger.Warn("Run failed", slog.String("trigger", kind), logfields.Error(err))
		return
	}
	w.logger.Debug("Run finished", slog.String("trigger", kind), logfields.Elapsed(time.Since(start)))
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if ev.Op == fsnotify.Chmod || shouldIgnoreEvent(ev.Name) || !w.relevant(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) && w.cfg.ImageDir != "" {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fsw, ev.Name, w.logger)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// relevant reports whether path is the watched post or lies inside the images folder.
func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)
	if path == w.cfg.Post {
		return true
	}
	if w.cfg.ImageDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.cfg.ImageDir, path)
	return err == nil && rel != "." && filepath.IsLocal(rel)
}

// debouncer returns a request channel, a trigger that fires it after d of
// quiet, and a stop function.
func debouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return req, trigger, stop
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent is true for hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
