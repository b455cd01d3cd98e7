// Package outcome implements the per-invocation message log.
//
// An Outcome is created once per command run and passed by pointer into every
// stage that reports progress. Messages are append-only. The final status and a
// summary line are attached with Final, which produces the Report rendered as
// JSON or human-readable lines.
package outcome

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
)

// Level is the severity attached to a message.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
)

// Message is one entry of the log.
type Message struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`

	// userFacing marks INFO entries meant for the interactive user rather than debug detail.
	userFacing bool
}

// Options controls live printing of messages as they are appended.
type Options struct {
	Out    io.Writer // live human-readable output; nil disables it
	JSON   bool      // suppress live output, the report is rendered at the end
	Quiet  bool
	Debug  bool
	Color  bool // colorize markers; fatih/color still disables it off a terminal
	Logger *slog.Logger
}

// Outcome accumulates leveled messages for a single invocation.
type Outcome struct {
	mu       sync.Mutex
	runID    string
	opts     Options
	logger   *slog.Logger
	messages []Message
}

// New creates an Outcome for the given run id.
func New(runID string, opts Options) *Outcome {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Outcome{runID: runID, opts: opts, logger: logger.With(logfields.RunID(runID))}
}

// Discard returns an Outcome that keeps messages but prints nothing.
func Discard() *Outcome {
	return New("", Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

// RunID returns the invocation id.
func (o *Outcome) RunID() string { return o.runID }

// Info records a user-facing progress message.
func (o *Outcome) Info(format string, args ...any) {
	o.add(Message{Level: LevelInfo, Message: fmt.Sprintf(format, args...), userFacing: true})
}

// Log records a detail message shown only in debug output.
func (o *Outcome) Log(format string, args ...any) {
	o.add(Message{Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// Success records a success message.
func (o *Outcome) Success(format string, args ...any) {
	o.add(Message{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)})
}

// Warning records a warning message.
func (o *Outcome) Warning(format string, args ...any) {
	o.add(Message{Level: LevelWarning, Message: fmt.Sprintf(format, args...)})
}

// Error records an error message.
func (o *Outcome) Error(format string, args ...any) {
	o.add(Message{Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

// Fail records err as an ERROR entry and returns it unchanged.
func (o *Outcome) Fail(err error) error {
	if err != nil {
		o.Error("%s", err.Error())
	}
	return err
}

func (o *Outcome) add(m Message) {
	o.record(m)
	o.print(m)
}

func (o *Outcome) record(m Message) {
	o.mu.Lock()
	o.messages = append(o.messages, m)
	o.mu.Unlock()
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, m.Message, slog.String("level", string(m.Level)))
}

func (o *Outcome) print(m Message) {
	if o.opts.Out == nil || o.opts.JSON {
		return
	}
	var line string
	switch m.Level {
	case LevelInfo:
		switch {
		case m.userFacing && !o.opts.Quiet:
			line = o.paint(color.FgGreen, "✓") + " " + m.Message
		case !m.userFacing && o.opts.Debug && !o.opts.Quiet:
			line = m.Message
		}
	case LevelSuccess:
		if o.opts.Debug && !o.opts.Quiet {
			line = o.paint(color.FgGreen, "[SUCCESS]") + " " + m.Message
		}
	case LevelWarning:
		if !o.opts.Quiet {
			line = o.paint(color.FgYellow, "[WARNING]") + " " + m.Message
		}
	case LevelError:
		line = o.paint(color.FgRed, "[ERROR]") + " " + m.Message
	}
	if line != "" {
		_, _ = fmt.Fprintln(o.opts.Out, line)
	}
}

func (o *Outcome) paint(attr color.Attribute, marker string) string {
	if !o.opts.Color {
		return marker
	}
	return color.New(attr, color.Bold).Sprint(marker)
}

// Messages returns a copy of the recorded messages.
func (o *Outcome) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Count returns the number of messages recorded at level.
func (o *Outcome) Count(level Level) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, m := range o.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Summary is the machine-readable status snapshot.
type Summary struct {
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"message_count"`
	HasErrors    bool      `json:"has_errors"`
	HasWarnings  bool      `json:"has_warnings"`
}

// Summary returns the current status snapshot.
func (o *Outcome) Summary() Summary {
	msgs := o.Messages()
	return Summary{
		Messages:     msgs,
		MessageCount: len(msgs),
		HasErrors:    o.Count(LevelError) > 0,
		HasWarnings:  o.Count(LevelWarning) > 0,
	}
}

// Report is the terminal status of an invocation.
type Report struct {
	StatusCode int       `json:"status_code"`
	StatusName string    `json:"status_name"`
	Summary    string    `json:"summary"`
	RunID      string    `json:"run_id,omitempty"`
	Messages   []Message `json:"messages"`
}

// Final attaches the terminal status and summary line and returns the report.
// The summary is recorded but not printed live; WriteHuman prints it.
func (o *Outcome) Final(code errors.ExitCode, summary string) Report {
	if summary != "" {
		level := LevelError
		if code == errors.ExitSuccess {
			level = LevelSuccess
		}
		o.record(Message{Level: level, Message: summary})
	}
	return Report{
		StatusCode: int(code),
		StatusName: code.String(),
		Summary:    summary,
		RunID:      o.runID,
		Messages:   o.Messages(),
	}
}
