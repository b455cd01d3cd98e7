package markdown

import (
	"regexp"
	"strings"
)

// EmbedPattern matches wiki-style image embeds: ![[name]].
var EmbedPattern = regexp.MustCompile(`!\[\[(.*?)\]\]`)

// Embed is one embed token located in a document.
type Embed struct {
	Start  int    // byte offset of "!"
	End    int    // byte offset after "]]"
	Raw    string // full token, e.g. ![[My Diagram]]
	Target string // text between the brackets
}

// FindEmbeds returns the non-overlapping matches of pattern in left-to-right
// order. pattern must have one capture group holding the target; nil uses EmbedPattern.
func FindEmbeds(content string, pattern *regexp.Regexp) []Embed {
	if pattern == nil {
		pattern = EmbedPattern
	}
	if pattern == EmbedPattern && !strings.Contains(content, "![[") {
		return nil
	}
	idx := pattern.FindAllStringSubmatchIndex(content, -1)
	out := make([]Embed, 0, len(idx))
	for _, m := range idx {
		e := Embed{Start: m[0], End: m[1], Raw: content[m[0]:m[1]]}
		if len(m) >= 4 && m[2] >= 0 {
			e.Target = content[m[2]:m[3]]
		}
		out = append(out, e)
	}
	return out
}

// HasEmbeds reports whether content still contains an embed token.
func HasEmbeds(content string) bool {
	return EmbedPattern.MatchString(content)
}
