package git

import (
	stderrors "errors"
	"strings"

	"git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
)

// ErrNothingToCommit reports a staged tree identical to HEAD. Publish treats
// it as success.
var ErrNothingToCommit = stderrors.New("nothing to commit")

// ErrNotRepository reports a site root that is not inside a git work tree.
var ErrNotRepository = stderrors.New("not a git repository")

// GitError simplifies creating a git-scoped ClassifiedError.
func GitError(message string) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryGit, message)
}

// ClassifyGitError translates go-git or command-line git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, dir string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	builder := GitError("Git publishing failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("dir", dir)

	switch {
	case stderrors.Is(err, ErrNotRepository) || strings.Contains(l, "not a git repository"):
		builder.WithContext("reason", "not_repository").UserAction()
	case strings.Contains(l, "authentication failed") || strings.Contains(l, "permission denied (publickey)") ||
		strings.Contains(l, "could not read username") || strings.Contains(l, "invalid credentials"):
		builder.WithContext("reason", "auth").UserAction()
	case strings.Contains(l, "please tell me who you are") || strings.Contains(l, "user.email"):
		builder.WithContext("reason", "identity").UserAction()
	case strings.Contains(l, "no configured push destination") || strings.Contains(l, "has no upstream branch"):
		builder.WithContext("reason", "no_upstream").UserAction()
	case strings.Contains(l, "rejected") || strings.Contains(l, "non-fast-forward") || strings.Contains(l, "fetch first"):
		builder.WithContext("reason", "diverged").UserAction()
	case strings.Contains(l, "could not resolve host") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "remote hung up") || strings.Contains(l, "timed out") || strings.Contains(l, "no route to host"):
		builder.WithContext("reason", "network").Retryable()
	}
	return builder.Build()
}

// IsTransient reports whether a classified git error is worth retrying.
func IsTransient(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.CanRetry()
}
