// Package commands implements the jekyllpress command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/version"
)

// Global is shared by every command of one invocation.
type Global struct {
	Context context.Context
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Out     *outcome.Outcome

	success string // summary line on success
	failure string // summary line on failure
	raw     bool   // the command printed its own result
}

// summarize sets the closing lines of the report.
func (g *Global) summarize(success, failure string) {
	g.success, g.failure = success, failure
}

// CLI is the root of the command tree and holds the global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default ./jekyllpress.yaml, then ~/.jekyllpress/config.yaml)"`
	JSON    bool             `name:"json" help:"Output status in JSON format"`
	Quiet   bool             `short:"q" help:"Suppress progress output"`
	Debug   bool             `help:"Show detailed debug information"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	NoColor bool             `name:"no-color" help:"Disable colored output"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Convert ConvertCmd `cmd:"" help:"Convert an Obsidian post to Jekyll"`
	Local   LocalCmd   `cmd:"" help:"Convert and start the local Jekyll server"`
	Remote  RemoteCmd  `cmd:"" help:"Convert and publish to the git repository"`
	Both    BothCmd    `cmd:"" help:"Convert, serve locally and publish remotely"`
	Init    InitCmd    `cmd:"" help:"Create a configuration file"`
	Status  StatusCmd  `cmd:"" help:"Show the state of the Jekyll repository"`
	History HistoryCmd `cmd:"" help:"List recent conversion and publish runs"`
	Watch   WatchCmd   `cmd:"" help:"Re-convert a post whenever it or its images change"`
}

// AfterApply runs after flag parsing; it sets up logging and the outcome log once.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	switch {
	case c.Debug || c.Verbose:
		level = slog.LevelDebug
	case c.Quiet:
		level = slog.LevelWarn
	}
	g.Logger = slog.New(slog.NewTextHandler(g.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)

	g.Out = outcome.New(uuid.NewString(), outcome.Options{
		Out:    g.Stdout,
		JSON:   c.JSON,
		Quiet:  c.Quiet,
		Debug:  c.Debug,
		Color:  !c.NoColor,
		Logger: g.Logger,
	})
	return nil
}

type exitRequest int

// Execute parses args, runs the selected command and renders the final
// report. It returns the process exit status.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	g := &Global{Context: ctx, Stdin: stdin, Stdout: stdout, Stderr: stderr}
	var cli CLI

	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = int(req)
		}
	}()

	parser, err := kong.New(&cli,
		kong.Name("jekyllpress"),
		kong.Description("Publish Obsidian posts to a Jekyll site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exitRequest(c)) }),
		kong.Bind(g),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return int(ferrors.ExitProcessing)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jekyllpress: error: %v\n", err)
		return int(ferrors.ExitInvalidArgs)
	}

	runErr := kctx.Run(&cli)
	return g.finish(&cli, runErr)
}

// finish attaches the final status to the outcome log and renders it.
func (g *Global) finish(cli *CLI, err error) int {
	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose || cli.Debug, g.Logger)
	code := adapter.ExitCodeFor(err)
	adapter.LogError(g.Context, err)
	if err != nil && g.Out.Count(outcome.LevelError) == 0 {
		g.Out.Error("%s", adapter.FormatError(err))
	}
	if g.raw && err == nil {
		return int(code)
	}

	summary := g.success
	if err != nil {
		summary = g.failure
		if summary == "" {
			summary = err.Error()
		}
	}
	report := g.Out.Final(code, summary)

	var werr error
	switch {
	case cli.JSON:
		werr = outcome.WriteJSON(g.Stdout, report)
	case cli.Quiet && err == nil:
	default:
		werr = outcome.WriteHuman(g.Stdout, report)
	}
	if werr != nil {
		g.Logger.Warn("Failed to write report", slog.Any("error", werr))
	}
	return int(code)
}
