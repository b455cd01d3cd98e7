package outcome

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// WriteHuman renders the closing line for interactive use. Individual messages
// were already printed live when the Outcome had an output writer.
func WriteHuman(w io.Writer, r Report) error {
	if r.Summary == "" {
		return nil
	}
	prefix := "✓"
	if r.StatusCode != 0 {
		prefix = "✗"
	}
	_, err := fmt.Fprintf(w, "%s %s\n", prefix, r.Summary)
	return err
}
