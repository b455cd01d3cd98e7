// Package history keeps a SQLite ledger of conversion and publish runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/jekyllpress/internal/foundation/errors"
	"git.home.luguber.info/inful/jekyllpress/internal/publish"
)

// DefaultLimit is the number of rows Recent returns when limit <= 0.
const DefaultLimit = 20

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("history ledger closed")

// Entry is one recorded run.
type Entry struct {
	ID          int64         `json:"id"`
	RunID       string        `json:"run_id"`
	Time        time.Time     `json:"time"`
	Post        string        `json:"post"`
	Mode        string        `json:"mode"`
	Success     bool          `json:"success"`
	Status      string        `json:"status"`
	Images      int           `json:"images"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Commit      string        `json:"commit,omitempty"`
	Pushed      bool          `json:"pushed"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Ledger stores entries in SQLite.
type Ledger struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the ledger at path. Use ":memory:" for an in-memory ledger.
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "Failed to create history directory").
				WithContext("path", path).Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		post TEXT NOT NULL,
		mode TEXT NOT NULL,
		success INTEGER NOT NULL,
		status TEXT NOT NULL,
		images INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT,
		commit_hash TEXT,
		pushed INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_post ON runs(post);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends e. A zero Time is replaced by the current time.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, timestamp, post, mode, success, status, images, fingerprint, commit_hash, pushed, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time.UnixMilli(), e.Post, e.Mode, e.Success, e.Status, e.Images,
		nullable(e.Fingerprint), nullable(e.Commit), e.Pushed, e.Duration.Milliseconds(), nullable(e.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return l.query(ctx, selectRuns+" ORDER BY id DESC LIMIT ?", limit)
}

// ForPost returns every entry of one post, oldest first.
func (l *Ledger) ForPost(ctx context.Context, name string) ([]Entry, error) {
	return l.query(ctx, selectRuns+" WHERE post = ? ORDER BY id", name)
}

// LastPublished returns the newest successful entry of name that pushed a
// commit, or false when there is none.
func (l *Ledger) LastPublished(ctx context.Context, name string) (Entry, bool, error) {
	entries, err := l.query(ctx, selectRuns+" WHERE post = ? AND success = 1 AND pushed = 1 ORDER BY id DESC LIMIT 1", name)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

const selectRuns = `SELECT id, run_id, timestamp, post, mode, success, status, images, fingerprint, commit_hash, pushed, duration_ms, error FROM runs`

func (l *Ledger) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                           Entry
			ts, durationMS              int64
			fingerprint, commit, errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &ts, &e.Post, &e.Mode, &e.Success, &e.Status, &e.Images,
			&fingerprint, &commit, &e.Pushed, &durationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Time = time.UnixMilli(ts)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Fingerprint, e.Commit, e.Error = fingerprint.String, commit.String, errMsg.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Observe records a run report. It satisfies publish.Observer.
func (l *Ledger) Observe(ctx context.Context, r publish.Report) error {
	return l.Record(ctx, FromReport(r))
}

// FromReport converts a run report into a ledger entry.
func FromReport(r publish.Report) Entry {
	e := Entry{
		RunID:       r.RunID,
		Time:        r.Started,
		Post:        filepath.Base(r.Request.Identifier),
		Mode:        string(r.Request.Mode),
		Success:     r.Succeeded(),
		Status:      ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(r.Err).String(),
		Images:      r.Conversion.Images.Processed,
		Fingerprint: r.Conversion.Fingerprint,
		Duration:    r.Duration,
	}
	if r.Conversion.Paths.DestPost != "" {
		e.Post = filepath.Base(r.Conversion.Paths.DestPost)
	}
	if r.Publish != nil {
		e.Commit, e.Pushed = r.Publish.Commit, r.Publish.Pushed
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}

// Close closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
