package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/jekyllpress/internal/config"
	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/history"
)

// HistoryCmd lists the newest rows of the publish ledger.
type HistoryCmd struct {
	Limit int    `short:"n" default:"20" help:"Number of runs to show"`
	Post  string `help:"Only show runs of this post (sanitized file name)"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	g.summarize("", "History unavailable")

	cfg, err := config.Load(root.Config, g.Out)
	if err != nil {
		return g.Out.Fail(err)
	}
	if cfg.History.Path == "" {
		return g.Out.Fail(ferrors.ConfigError("History is disabled; set history.path in the configuration").Build())
	}
	ledger, err := history.Open(cfg.History.Path)
	if err != nil {
		return g.Out.Fail(err)
	}
	defer func() { _ = ledger.Close() }()

	var entries []history.Entry
	if h.Post != "" {
		entries, err = ledger.ForPost(g.Context, h.Post)
	} else {
		entries, err = ledger.Recent(g.Context, h.Limit)
	}
	if err != nil {
		return g.Out.Fail(ferrors.WrapError(err, ferrors.CategoryInternal, "Failed to read history").Build())
	}

	g.raw = true
	if root.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []history.Entry{}
		}
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(g.Stdout, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPOST\tMODE\tSTATUS\tIMAGES\tCOMMIT\tRUN")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Time.Local().Format(time.DateTime), e.Post, e.Mode, e.Status, e.Images, short(e.Commit), e.RunID)
	}
	return tw.Flush()
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	if hash == "" {
		return "-"
	}
	return hash
}
