package commands

import (
	"fmt"

	"git.home.luguber.info/inful/jekyllpress/internal/config"
	"git.home.luguber.info/inful/jekyllpress/internal/git"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
	"git.home.luguber.info/inful/jekyllpress/internal/publish"
)

// PostArg is the positional post identifier shared by the mode commands.
type PostArg struct {
	Post string `arg:"" name:"blog-name" help:"Post file name in the Obsidian posts folder, or an absolute path"`
}

// PreviewFlags select how the preview server is started.
type PreviewFlags struct {
	Wait       bool `help:"Wait until the server answers (bounded by preview.wait_timeout)"`
	Foreground bool `help:"Run the server in the foreground until Ctrl+C"`
	Open       bool `help:"Open the preview in a browser once it is up"`
}

func (f PreviewFlags) style(cfg *config.Config) publish.PreviewStyle {
	switch {
	case f.Foreground:
		return publish.PreviewForeground
	case f.Wait || cfg.Preview.Wait:
		return publish.PreviewWait
	}
	return publish.PreviewBackground
}

// ConvertCmd converts only.
type ConvertCmd struct {
	PostArg
}

func (c *ConvertCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, c.Post, post.ModeConvertOnly, "convert", PreviewFlags{})
}

// LocalCmd converts and serves locally.
type LocalCmd struct {
	PostArg
	PreviewFlags
}

func (c *LocalCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, c.Post, post.ModeLocalOnly, "local", c.PreviewFlags)
}

// RemoteCmd converts and publishes with git.
type RemoteCmd struct {
	PostArg
}

func (c *RemoteCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, c.Post, post.ModeRemoteOnly, "remote", PreviewFlags{})
}

// BothCmd converts, serves locally and publishes.
type BothCmd struct {
	PostArg
	PreviewFlags
}

func (c *BothCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, c.Post, post.ModeBoth, "both", c.PreviewFlags)
}

func runMode(g *Global, root *CLI, name string, mode post.Mode, command string, flags PreviewFlags) error {
	g.summarize(
		fmt.Sprintf("Successfully processed '%s' with mode '%s'", name, command),
		fmt.Sprintf("Failed to process '%s'", name),
	)

	cfg, err := config.Load(root.Config, g.Out)
	if err != nil {
		return g.Out.Fail(err)
	}
	a := newApp(g, cfg)
	defer a.close()

	if mode.Publishes() && !git.IsRepository(cfg.SiteRoot()) {
		g.Out.Warning("Jekyll root is not inside a git repository: %s", cfg.SiteRoot())
	}

	orch := a.orchestrator(flags.style(cfg), flags.Open || cfg.Preview.OpenBrowser)
	_, err = orch.Run(g.Context, post.Request{Identifier: name, Mode: mode}, g.Out)
	return err
}
