// Package notify announces published posts on a NATS subject.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
	"git.home.luguber.info/inful/jekyllpress/internal/publish"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "jekyllpress.published"

const flushTimeout = 5 * time.Second

// Conn is the subset of *nats.Conn the notifier uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Event is the JSON payload of a notification.
type Event struct {
	RunID       string    `json:"run_id"`
	Post        string    `json:"post"`
	Title       string    `json:"title,omitempty"`
	Mode        string    `json:"mode"`
	Commit      string    `json:"commit"`
	Images      int       `json:"images"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Notifier publishes an Event for every run that pushed a commit.
type Notifier struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a Notifier publishing on subject.
func Connect(url, subject string, logger *slog.Logger) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("jekyllpress"),
		nats.Timeout(flushTimeout),
		nats.MaxReconnects(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return New(conn, subject, logger), nil
}

// New wraps an existing connection.
func New(conn Conn, subject string, logger *slog.Logger) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{conn: conn, subject: subject, logger: logger}
}

// Subject returns the subject events are published on.
func (n *Notifier) Subject() string { return n.subject }

// Observe publishes an event when r pushed a commit. It satisfies publish.Observer.
func (n *Notifier) Observe(_ context.Context, r publish.Report) error {
	if !r.Succeeded() || r.Publish == nil || !r.Publish.Pushed {
		return nil
	}
	ev := Event{
		RunID:       r.RunID,
		Post:        filepath.Base(r.Conversion.Paths.DestPost),
		Title:       r.Conversion.Title,
		Mode:        string(r.Request.Mode),
		Commit:      r.Publish.Commit,
		Images:      r.Conversion.Images.Processed,
		Fingerprint: r.Conversion.Fingerprint,
		Timestamp:   time.Now().UTC(),
	}
	return n.Send(ev)
}

// Send publishes ev and waits for the server to acknowledge the flush.
func (n *Notifier) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	n.logger.Debug("Published notification",
		slog.String("subject", n.subject),
		logfields.RunID(ev.RunID),
		logfields.Post(ev.Post),
		logfields.Commit(ev.Commit))
	return nil
}

// Close closes the connection.
func (n *Notifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
