package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ImageLink is a standard Markdown image reference found by the parser.
type ImageLink struct {
	Alt         string
	Destination string
}

// ExtractImages parses a Markdown body and returns its image references in
// document order. Images inside code spans and fenced blocks are not reported.
func ExtractImages(body []byte) []ImageLink {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	images := make([]ImageLink, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if img, ok := n.(*gmast.Image); ok {
			images = append(images, ImageLink{
				Alt:         altText(img, body),
				Destination: string(img.Destination),
			})
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return images
}

func altText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			buf.Write(t.Segment.Value(source))
			continue
		}
		buf.WriteString(altText(c, source))
	}
	return buf.String()
}

// ImagesUnder filters images whose destination starts with prefix.
func ImagesUnder(images []ImageLink, prefix string) []ImageLink {
	out := make([]ImageLink, 0, len(images))
	for _, img := range images {
		if strings.HasPrefix(img.Destination, prefix) {
			out = append(out, img)
		}
	}
	return out
}
