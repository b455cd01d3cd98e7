package preview

import (
	"bytes"
	"context"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
)

// TestHelperProcess is not a real test. It stands in for the preview tool
// when re-executed by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("JEKYLLPRESS_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	mode := args[0]
	host, port := "localhost", "4000"
	for i := 1; i+1 < len(args); i++ {
		switch args[i] {
		case "--host":
			host = args[i+1]
		case "--port":
			port = args[i+1]
		}
	}
	switch mode {
	case "serve":
		ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
		if err != nil {
			os.Exit(3)
		}
		for {
			conn, err := ln.Accept()
			if err != nil {
				os.Exit(0)
			}
			_ = conn.Close()
		}
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "fail":
		_, _ = os.Stderr.WriteString("Could not locate Gemfile\n")
		os.Exit(10)
	default:
		os.Exit(0)
	}
}

func helperConfig(t *testing.T, mode string) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("helper process signals are unix-only")
	}
	t.Setenv("JEKYLLPRESS_HELPER_PROCESS", "1")
	return Config{
		Root:          t.TempDir(),
		Command:       []string{os.Args[0], "-test.run=TestHelperProcess", "--", mode},
		Host:          "127.0.0.1",
		Port:          freePort(t),
		ProbeTimeout:  200 * time.Millisecond,
		ProbeInterval: 50 * time.Millisecond,
		WaitTimeout:   5 * time.Second,
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	assert.True(t, Probe(context.Background(), "127.0.0.1", port, time.Second))
	require.NoError(t, ln.Close())
	assert.False(t, Probe(context.Background(), "127.0.0.1", port, 200*time.Millisecond))
}

func TestConfigDefaultsAndArgv(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultCommand, c.Command)
	assert.Equal(t, "http://localhost:4000", c.URL())
	assert.Equal(t, []string{"bundle", "exec", "jekyll", "serve"}, c.argv())

	c = Config{Host: "0.0.0.0", Port: 4001}.withDefaults()
	assert.Equal(t, []string{"bundle", "exec", "jekyll", "serve", "--host", "0.0.0.0", "--port", "4001"}, c.argv())
	assert.Equal(t, "http://0.0.0.0:4001", c.URL())
}

func TestServer_RunningUsesConfiguredPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(Config{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port})
	assert.True(t, s.Running(context.Background()))
}

func TestLaunch_ReturnsWithoutWaiting(t *testing.T) {
	cfg := helperConfig(t, "hang")
	s := NewServer(cfg)

	start := time.Now()
	d, err := s.Launch(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Positive(t, d.PID)
	assert.Equal(t, cfg.URL(), d.URL)

	if p, err := os.FindProcess(d.PID); err == nil {
		_ = p.Kill()
	}
}

func TestLaunch_MissingBinary(t *testing.T) {
	s := NewServer(Config{Root: t.TempDir(), Command: []string{"definitely-not-a-jekyll-binary"}})
	_, err := s.Launch(context.Background())
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitPreviewServer, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestLaunchAndWait_Ready(t *testing.T) {
	s := NewServer(helperConfig(t, "serve"))

	p, err := s.LaunchAndWait(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Stop()
		_ = os.Remove(p.LogPath)
	})
	assert.True(t, s.Running(context.Background()))
}

func TestLaunchAndWait_ExitedEarly(t *testing.T) {
	s := NewServer(helperConfig(t, "fail"))

	_, err := s.LaunchAndWait(context.Background())
	require.ErrorIs(t, err, ErrExitedEarly)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryPreview, ce.Category())
	out, _ := ce.Context().GetString("output")
	assert.Contains(t, out, "Gemfile")
}

func TestLaunchAndWait_Timeout(t *testing.T) {
	cfg := helperConfig(t, "hang")
	cfg.WaitTimeout = 300 * time.Millisecond
	s := NewServer(cfg)

	start := time.Now()
	_, err := s.LaunchAndWait(context.Background())
	require.ErrorIs(t, err, ErrStartupTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPreview))
}

func TestLaunchAndWait_TimeoutBoundsBlockingProbes(t *testing.T) {
	cfg := helperConfig(t, "hang")
	cfg.WaitTimeout = 300 * time.Millisecond
	cfg.ProbeTimeout = 2 * time.Second
	s := NewServer(cfg)
	s.probe = func(ctx context.Context, _ string, _ int, timeout time.Duration) bool {
		select {
		case <-ctx.Done():
		case <-time.After(timeout):
		}
		return false
	}

	start := time.Now()
	_, err := s.LaunchAndWait(context.Background())
	require.ErrorIs(t, err, ErrStartupTimeout)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestLaunchAndWait_CanceledIsNotTimeout(t *testing.T) {
	cfg := helperConfig(t, "hang")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewServer(cfg).LaunchAndWait(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStartupTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServe_InterruptIsCleanStop(t *testing.T) {
	cfg := helperConfig(t, "hang")
	var out bytes.Buffer
	s := NewServer(cfg, WithOutput(&out, &out))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Serve(ctx))
}

func TestServe_FailureIsPreviewError(t *testing.T) {
	cfg := helperConfig(t, "fail")
	var out bytes.Buffer
	s := NewServer(cfg, WithOutput(&out, &out))

	err := s.Serve(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPreview))
	assert.Contains(t, out.String(), "Gemfile")
}

func TestTail(t *testing.T) {
	path := t.TempDir() + "/log"
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))
	assert.Equal(t, "6789", tail(path, 4))
	assert.Equal(t, "0123456789", tail(path, 100))
	assert.Equal(t, "", tail(path+".missing", 4))
}
