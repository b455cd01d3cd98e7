package commands

import (
	"git.home.luguber.info/inful/jekyllpress/internal/config"
	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force       bool `help:"Overwrite an existing configuration file"`
	Interactive bool `short:"i" help:"Ask for the Obsidian and Jekyll folders"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	g.summarize("Setup completed successfully", "Setup failed")

	path := root.Config
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return g.Out.Fail(ferrors.WrapError(err, ferrors.CategoryConfig, "Failed to locate config file").Build())
		}
		path = p
	}

	if i.Interactive {
		_, err := config.Wizard{In: g.Stdin, Prompt: g.Stderr, Out: g.Out}.Run(path, i.Force)
		return g.Out.Fail(err)
	}

	g.Out.Info("Writing configuration to %s", path)
	if err := config.Write(path, config.Example(), i.Force); err != nil {
		return g.Out.Fail(err)
	}
	g.Out.Info("Edit the obsidian and jekyll folders in %s before the first run", path)
	return nil
}
