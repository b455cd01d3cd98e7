package markdown

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Edit replaces source[Start:End] with Replacement. Offsets are byte offsets
// into the original source, End exclusive.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// ErrOverlappingEdits is returned when two edits cover the same bytes.
var ErrOverlappingEdits = errors.New("invalid edits: overlapping ranges")

// ApplyEdits applies non-overlapping edits in a single forward pass. Bytes not
// covered by an edit are copied unchanged.
func ApplyEdits(source string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(source))
	cursor := 0
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return "", fmt.Errorf("invalid edit[%d]: range %d..%d out of bounds", i, e.Start, e.End)
		}
		if e.Start < cursor {
			return "", ErrOverlappingEdits
		}
		b.WriteString(source[cursor:e.Start])
		b.WriteString(e.Replacement)
		cursor = e.End
	}
	b.WriteString(source[cursor:])
	return b.String(), nil
}
