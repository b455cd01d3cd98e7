package git

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// RepoStatus is a read-only snapshot of the site repository.
type RepoStatus struct {
	Root    string              `json:"root"`
	Branch  string              `json:"branch"` // empty when HEAD is detached or unborn
	Head    string              `json:"head"`   // empty for a repository without commits
	Clean   bool                `json:"clean"`
	Changes []string            `json:"changes"` // paths with staged or unstaged changes, sorted
	Remotes map[string][]string `json:"remotes"`
}

func openRepo(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	return repo, err
}

// IsRepository reports whether dir is inside a git work tree.
func IsRepository(dir string) bool {
	_, err := openRepo(dir)
	return err == nil
}

// HeadCommit returns the commit hash HEAD points at.
func HeadCommit(dir string) (string, error) {
	repo, err := openRepo(dir)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// Inspect reads branch, HEAD, remotes and work tree status of the repository
// containing dir.
func Inspect(dir string) (RepoStatus, error) {
	st := RepoStatus{Root: dir, Remotes: map[string][]string{}}

	repo, err := openRepo(dir)
	if err != nil {
		return st, ClassifyGitError(err, "open", dir)
	}

	ref, err := repo.Head()
	switch {
	case err == nil:
		st.Head = ref.Hash().String()
		if ref.Name().IsBranch() {
			st.Branch = ref.Name().Short()
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Unborn branch: no commits yet.
	default:
		return st, ClassifyGitError(err, "head", dir)
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return st, ClassifyGitError(err, "remotes", dir)
	}
	for _, r := range remotes {
		cfg := r.Config()
		st.Remotes[cfg.Name] = append([]string(nil), cfg.URLs...)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return st, ClassifyGitError(err, "worktree", dir)
	}
	status, err := wt.Status()
	if err != nil {
		return st, ClassifyGitError(err, "status", dir)
	}
	st.Clean = status.IsClean()
	for path, fs := range status {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		st.Changes = append(st.Changes, path)
	}
	sort.Strings(st.Changes)
	if wtRoot := wt.Filesystem.Root(); wtRoot != "" {
		st.Root = wtRoot
	}
	return st, nil
}
