// Package git publishes the Jekyll site through the git command line and
// inspects the repository with go-git.
//
// The publish sequence is add, staged-diff check, commit, push. A clean staged
// tree ends the sequence successfully without a commit, so publishing the same
// content twice is not an error. Subprocess output is captured and attached to
// the classified error on failure.
package git
