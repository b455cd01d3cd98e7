// Package preview manages the local Jekyll preview server: port probing,
// fire-and-forget launch, launch with a bounded readiness wait, and a
// blocking foreground run.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
	"git.home.luguber.info/inful/jekyllpress/internal/metrics"
	"git.home.luguber.info/inful/jekyllpress/internal/retry"
)

// Defaults matching a stock Jekyll install.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 4000
	DefaultProbeTimeout  = time.Second
	DefaultProbeInterval = 500 * time.Millisecond
	DefaultWaitTimeout   = 10 * time.Second
)

// DefaultCommand serves the site through bundler.
var DefaultCommand = []string{"bundle", "exec", "jekyll", "serve"}

// ErrStartupTimeout is wrapped by the error returned when the server never
// became reachable within the wait budget.
var ErrStartupTimeout = errors.New("preview server startup timed out")

// ErrExitedEarly is wrapped by the error returned when the server process
// exited before it became reachable.
var ErrExitedEarly = errors.New("preview server exited during startup")

// Config describes how to run the preview server.
type Config struct {
	Root          string   // site root, used as working directory
	Command       []string // argv; empty uses DefaultCommand
	Host          string
	Port          int
	ProbeTimeout  time.Duration
	ProbeInterval time.Duration
	WaitTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Command) == 0 {
		c.Command = DefaultCommand
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	return c
}

// URL is where the server is reachable once ready.
func (c Config) URL() string {
	c = c.withDefaults()
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// argv returns the command line. Host and port flags are only appended when
// they differ from Jekyll's own defaults so custom commands keep working.
func (c Config) argv() []string {
	args := append([]string(nil), c.Command...)
	if c.Host != DefaultHost {
		args = append(args, "--host", c.Host)
	}
	if c.Port != DefaultPort {
		args = append(args, "--port", strconv.Itoa(c.Port))
	}
	return args
}

// Detached is a background server that was started and deliberately not
// awaited. Only its identity is kept.
type Detached struct {
	PID int
	URL string
}

// Process is a started server whose exit is being watched.
type Process struct {
	PID     int
	URL     string
	LogPath string

	cmd  *exec.Cmd
	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop kills the process and waits for it to be reaped.
func (p *Process) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// Server runs the preview tool described by a Config.
type Server struct {
	cfg      Config
	recorder metrics.Recorder
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	probe    func(ctx context.Context, host string, port int, timeout time.Duration) bool
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) { s.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithOutput sets where a foreground server writes its output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Server) { s.stdout, s.stderr = stdout, stderr }
}

// NewServer returns a Server for cfg.
func NewServer(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg.withDefaults(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		probe:    Probe,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Server) Config() Config { return s.cfg }

// URL is where the server is reachable once ready.
func (s *Server) URL() string { return s.cfg.URL() }

// Running reports whether the configured port already accepts connections.
func (s *Server) Running(ctx context.Context) bool {
	return s.probe(ctx, s.cfg.Host, s.cfg.Port, s.cfg.ProbeTimeout)
}

func (s *Server) command(ctx context.Context) *exec.Cmd {
	argv := s.cfg.argv()
	// #nosec G204 -- argv comes from the user's own config file
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.cfg.Root
	return cmd
}

// Launch starts the server in the background and returns at once. Output is
// discarded and the process is released: no goroutine waits on it.
func (s *Server) Launch(_ context.Context) (Detached, error) {
	// The server must outlive this call, so it is not bound to the caller's context.
	cmd := s.command(context.Background())
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return Detached{}, s.startError(err)
	}
	d := Detached{PID: cmd.Process.Pid, URL: s.URL()}
	s.logger.Debug("Preview server launched",
		logfields.Command(strings.Join(cmd.Args, " ")),
		slog.Int("pid", d.PID),
		logfields.Path(s.cfg.Root))
	_ = cmd.Process.Release()
	return d, nil
}

// Start launches the server with output going to a log file and watches the
// process for exit.
func (s *Server) Start(_ context.Context) (*Process, error) {
	logFile, err := os.CreateTemp("", "jekyllpress-preview-*.log")
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to create preview log").Build()
	}
	cmd := s.command(context.Background())
	cmd.Stdout, cmd.Stderr = logFile, logFile
	detach(cmd)
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		_ = os.Remove(logFile.Name())
		return nil, s.startError(err)
	}
	// The child holds its own descriptor.
	_ = logFile.Close()

	p := &Process{PID: cmd.Process.Pid, URL: s.URL(), LogPath: logFile.Name(), cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	s.logger.Debug("Preview server started",
		logfields.Command(strings.Join(cmd.Args, " ")),
		slog.Int("pid", p.PID),
		slog.String("log", p.LogPath))
	return p, nil
}

// LaunchAndWait starts the server and polls the port until it answers. If the
// process exits first, or the wait budget runs out, the returned error is a
// preview error; on timeout the process is killed.
func (s *Server) LaunchAndWait(ctx context.Context) (*Process, error) {
	started := time.Now()
	p, err := s.Start(ctx)
	if err != nil {
		return nil, err
	}

	// The deadline bounds the whole wait, including probes that block until
	// their own timeout.
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.WaitTimeout)
	defer cancel()
	policy := retry.Every(s.cfg.ProbeInterval, s.cfg.WaitTimeout)
	err = policy.Do(waitCtx, func(ctx context.Context, _ int) (bool, error) {
		select {
		case <-p.Done():
			return false, ErrExitedEarly
		default:
		}
		return s.Running(ctx), nil
	})
	elapsed := time.Since(started)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = retry.ErrExhausted
	}

	switch {
	case err == nil:
		s.recorder.ObservePreviewStartup(elapsed, true)
		s.logger.Debug("Preview server ready", logfields.Elapsed(elapsed), logfields.Port(s.cfg.Port))
		return p, nil
	case errors.Is(err, ErrExitedEarly):
		s.recorder.ObservePreviewStartup(elapsed, false)
		return nil, ferrors.WrapError(err, ferrors.CategoryPreview, "Jekyll server failed to start").
			WithContext("exit", fmt.Sprint(p.Err())).
			WithContext("output", tail(p.LogPath, 2048)).Build()
	case errors.Is(err, retry.ErrExhausted):
		s.recorder.ObservePreviewStartup(elapsed, false)
		_ = p.Stop()
		return nil, ferrors.WrapError(fmt.Errorf("%w after %s", ErrStartupTimeout, s.cfg.WaitTimeout),
			ferrors.CategoryPreview, "Jekyll server startup timed out").Build()
	default:
		_ = p.Stop()
		return nil, ferrors.WrapError(err, ferrors.CategoryPreview, "Jekyll server startup interrupted").Build()
	}
}

// Serve runs the server in the foreground until it exits or ctx is canceled.
// Cancellation sends an interrupt and counts as a clean stop.
func (s *Server) Serve(ctx context.Context) error {
	cmd := s.command(ctx)
	cmd.Stdout, cmd.Stderr = s.stdout, s.stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return s.startError(err)
	}
	err := cmd.Wait()
	if ctx.Err() != nil {
		s.logger.Debug("Preview server stopped by interrupt")
		return nil
	}
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPreview, "Jekyll server exited").Build()
	}
	return nil
}

func (s *Server) startError(err error) error {
	return ferrors.WrapError(err, ferrors.CategoryPreview, "Failed to start Jekyll").
		WithContext("command", strings.Join(s.cfg.argv(), " ")).
		WithContext("dir", s.cfg.Root).Build()
}

func tail(path string, n int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() {
		_ = f.Close()
	}()
	st, err := f.Stat()
	if err != nil {
		return ""
	}
	off := st.Size() - n
	if off < 0 {
		off = 0
	}
	buf := make([]byte, st.Size()-off)
	if _, err := f.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(string(buf))
}
