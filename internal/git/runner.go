package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Output is the captured result of one git invocation.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined, for error reports.
func (o Output) Combined() string {
	return strings.TrimSpace(strings.Join([]string{o.Stdout, o.Stderr}, "\n"))
}

// Runner executes git in a working directory. A non-zero exit is reported as
// an *ExitError alongside the captured Output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Output, error)
}

// ExitError reports a git invocation that ran but exited non-zero.
type ExitError struct {
	Args   []string
	Output Output
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("git %s exited with status %d", strings.Join(e.Args, " "), e.Output.ExitCode)
	if s := e.Output.Combined(); s != "" {
		msg += ": " + s
	}
	return msg
}

// ExitCodeOf returns the exit status carried by err, or -1.
func ExitCodeOf(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Output.ExitCode
	}
	return -1
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct {
	Binary string // defaults to "git"
	Env    []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (Output, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}
	// #nosec G204 -- fixed binary, arguments built by this package
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	err := cmd.Run()
	out := Output{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			out.ExitCode = ee.ExitCode()
			return out, &ExitError{Args: args, Output: out}
		}
		out.ExitCode = -1
		return out, fmt.Errorf("run git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}
