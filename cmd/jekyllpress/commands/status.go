package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/jekyllpress/internal/config"
	"git.home.luguber.info/inful/jekyllpress/internal/git"
)

// StatusCmd prints branch, HEAD and pending changes of the Jekyll repository.
type StatusCmd struct{}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	g.summarize("", "Status unavailable")

	cfg, err := config.Load(root.Config, g.Out)
	if err != nil {
		return g.Out.Fail(err)
	}
	st, err := git.Inspect(cfg.SiteRoot())
	if err != nil {
		return g.Out.Fail(err)
	}

	g.raw = true
	if root.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	branch := st.Branch
	if branch == "" {
		branch = "(detached or unborn)"
	}
	head := st.Head
	if head == "" {
		head = "(no commits)"
	}
	fmt.Fprintf(g.Stdout, "Repository: %s\n", st.Root)
	fmt.Fprintf(g.Stdout, "Branch:     %s\n", branch)
	fmt.Fprintf(g.Stdout, "HEAD:       %s\n", head)

	names := make([]string, 0, len(st.Remotes))
	for name := range st.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(g.Stdout, "Remote:     %s %s\n", name, strings.Join(st.Remotes[name], ", "))
	}

	if st.Clean {
		fmt.Fprintln(g.Stdout, "Working tree clean")
		return nil
	}
	fmt.Fprintf(g.Stdout, "Uncommitted changes (%d):\n", len(st.Changes))
	for _, c := range st.Changes {
		fmt.Fprintf(g.Stdout, "  %s\n", c)
	}
	return nil
}
