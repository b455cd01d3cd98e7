// Package markdown locates wiki-style embeds, applies byte-range edits, and
// parses standard Markdown image references with goldmark.
package markdown
