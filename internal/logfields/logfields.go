package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPost       = "post"
	KeyPath       = "path"
	KeySource     = "source"
	KeyDest       = "destination"
	KeyImage      = "image"
	KeyMode       = "mode"
	KeyStage      = "stage"
	KeyPort       = "port"
	KeyCommand    = "command"
	KeyCommit     = "commit"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Post(name string) slog.Attr      { return slog.String(KeyPost, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Dest(p string) slog.Attr         { return slog.String(KeyDest, p) }
func Image(name string) slog.Attr     { return slog.String(KeyImage, name) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Commit(hash string) slog.Attr    { return slog.String(KeyCommit, hash) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Elapsed reports d in milliseconds under the duration_ms key.
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
