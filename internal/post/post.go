// Package post holds the data model of a single conversion request and the
// resolver that derives every path the conversion touches.
package post

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Mode selects what happens after a successful conversion.
type Mode string

const (
	ModeConvertOnly Mode = "convert_only"
	ModeLocalOnly   Mode = "local_only"
	ModeRemoteOnly  Mode = "remote_only"
	ModeBoth        Mode = "both"
)

// Modes lists every supported publishing mode.
var Modes = []Mode{ModeConvertOnly, ModeLocalOnly, ModeRemoteOnly, ModeBoth}

// ParseMode accepts the canonical names and the command aliases (convert, local, remote, both).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "convert", string(ModeConvertOnly), "":
		return ModeConvertOnly, nil
	case "local", string(ModeLocalOnly):
		return ModeLocalOnly, nil
	case "remote", string(ModeRemoteOnly):
		return ModeRemoteOnly, nil
	case string(ModeBoth):
		return ModeBoth, nil
	}
	return "", fmt.Errorf("unknown publishing mode: %s", s)
}

// StartsPreview reports whether the mode launches the local preview server.
func (m Mode) StartsPreview() bool { return m == ModeLocalOnly || m == ModeBoth }

// Publishes reports whether the mode runs the git publish sequence.
func (m Mode) Publishes() bool { return m == ModeRemoteOnly || m == ModeBoth }

// Request is one conversion request. It is built once by the entry point.
type Request struct {
	Identifier string `json:"identifier"` // bare filename or absolute path
	Mode       Mode   `json:"mode"`
}

// Sanitize replaces every space with a hyphen. Post and image names use the same rule.
// Names are also brought into Unicode NFC so a decomposed name (as written by
// macOS) maps to the same destination and URL as its composed form.
func Sanitize(name string) string {
	return norm.NFC.String(strings.ReplaceAll(name, " ", "-"))
}
