// Package frontmatter reads the YAML front matter of a Jekyll post and
// fingerprints the converted document.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	adrg "github.com/adrg/frontmatter"
	"github.com/inful/mdfp"
)

// ErrUnterminated is returned when a document opens front matter but never closes it.
var ErrUnterminated = errors.New("front matter opened with --- but not closed")

// Document is a post split into front matter and body.
type Document struct {
	Raw    string         // front matter text without delimiters
	Fields map[string]any // parsed front matter; empty when absent
	Body   string
	Had    bool // document started with a front matter block
}

// Split separates front matter from the body. Both LF and CRLF line endings
// are accepted.
func Split(content []byte) (raw, body []byte, had bool, err error) {
	nl := []byte("\n")
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = []byte("\r\n")
	}
	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}
	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	closing := append(append(append([]byte{}, nl...), "---"...), nl...)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		// A closing delimiter on the final line without a newline.
		tail := append(append([]byte{}, nl...), "---"...)
		if bytes.HasSuffix(rest, tail) {
			return rest[:len(rest)-len(tail)+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrUnterminated
	}
	return rest[:idx+len(nl)], rest[idx+len(closing):], true, nil
}

// Parse splits content and decodes the front matter. Decoding is delegated to
// adrg/frontmatter; the split itself stays local so Raw matches the file bytes.
func Parse(content []byte) (Document, error) {
	raw, body, had, err := Split(content)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Raw: string(raw), Body: string(body), Had: had, Fields: map[string]any{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	if _, err := adrg.Parse(bytes.NewReader(content), &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("parse front matter: %w", err)
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	return doc, nil
}

// Title returns the title field, or "".
func (d Document) Title() string {
	s, _ := d.Fields["title"].(string)
	return s
}

// Date returns the date field. yaml.v3 decodes timestamps to time.Time; plain
// strings in the common Jekyll layouts are parsed as a fallback.
func (d Document) Date() (time.Time, bool) {
	switch v := d.Fields["date"].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{"2006-01-02 15:04:05 -0700", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Fingerprint hashes the document with mdfp. An existing fingerprint field in
// the front matter is ignored so that stamping a document does not change its hash.
func Fingerprint(content []byte) (string, error) {
	doc, err := Parse(content)
	if err != nil {
		return "", err
	}
	raw := doc.Raw
	if _, ok := doc.Fields[mdfp.FingerprintField]; ok {
		raw = dropLine(raw, mdfp.FingerprintField+":")
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimRight(raw, "\r\n"), doc.Body), nil
}

func dropLine(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "")
}
