// Package imagelinks rewrites wiki-style image embeds into standard Markdown
// image links and copies the referenced files into the site.
package imagelinks

import (
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/jekyllpress/internal/assets"
	"git.home.luguber.info/inful/jekyllpress/internal/logfields"
	"git.home.luguber.info/inful/jekyllpress/internal/markdown"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
)

// DefaultExtensions is the resolution order for embeds written without an extension.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// DefaultAlt is used when an embed has no usable name.
const DefaultAlt = "Image"

// Stage is a content rewrite applied after all images are handled.
type Stage func(content string) string

// LinkFunc renders the replacement for one image.
type LinkFunc func(alt, url string) string

// MarkdownLink renders ![alt](url).
func MarkdownLink(alt, url string) string {
	return "![" + alt + "](" + url + ")"
}

// ImageReference describes one embed seen during a pass.
type ImageReference struct {
	Raw      string // embed token as written
	Filename string // resolved source filename, extension included
	Alt      string
	URL      string // empty unless rewritten
	Width    int
	Height   int
}

// Result is the output of one Transform call.
type Result struct {
	Content   string
	Processed int // images copied and rewritten
	Warnings  int // embeds left untouched because no source file was found
	Failed    int // embeds left untouched because the copy failed
	Images    []ImageReference
}

// Transformer holds the rewrite configuration. It is safe to reuse across
// calls but not to reconfigure concurrently.
type Transformer struct {
	extensions []string
	pattern    *regexp.Regexp
	urlPrefix  string
	defaultAlt string
	link       LinkFunc
	stage      Stage
	copyFile   func(src, dst string) error
	exists     func(path string) bool
	logger     *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithExtensions replaces the extension resolution order.
func WithExtensions(exts ...string) Option {
	return func(t *Transformer) {
		t.extensions = nil
		for _, e := range exts {
			t.AddExtension(e)
		}
	}
}

// WithPattern overrides the embed pattern. The first capture group is the target.
func WithPattern(p *regexp.Regexp) Option {
	return func(t *Transformer) { t.pattern = p }
}

// WithURLPrefix sets the public path images are linked under. A prefix of
// "/" links images at the site root.
func WithURLPrefix(prefix string) Option {
	return func(t *Transformer) {
		trimmed := strings.TrimRight(prefix, "/")
		if trimmed == "" && strings.HasPrefix(prefix, "/") {
			trimmed = "/"
		}
		t.urlPrefix = trimmed
	}
}

// WithDefaultAlt sets the alt text used for empty embeds.
func WithDefaultAlt(alt string) Option {
	return func(t *Transformer) { t.defaultAlt = alt }
}

// WithLinkFunc replaces the link renderer.
func WithLinkFunc(fn LinkFunc) Option {
	return func(t *Transformer) { t.link = fn }
}

// WithStage installs the post-image content rewrite.
func WithStage(fn Stage) Option {
	return func(t *Transformer) { t.stage = fn }
}

// WithCopier replaces the file copy used for assets.
func WithCopier(fn func(src, dst string) error) Option {
	return func(t *Transformer) { t.copyFile = fn }
}

// WithLogger sets the logger for per-image debug records.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) { t.logger = l }
}

// New returns a Transformer with default settings adjusted by opts.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		extensions: append([]string(nil), DefaultExtensions...),
		pattern:    markdown.EmbedPattern,
		urlPrefix:  post.ImagesURL,
		defaultAlt: DefaultAlt,
		link:       MarkdownLink,
		stage:      func(s string) string { return s },
		copyFile:   assets.CopyFile,
		exists:     assets.Exists,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddExtension appends ext to the resolution order unless already present.
// A missing leading dot is added.
func (t *Transformer) AddExtension(ext string) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, e := range t.extensions {
		if e == ext {
			return
		}
	}
	t.extensions = append(t.extensions, ext)
}

// URLPrefix returns the public path images are linked under.
func (t *Transformer) URLPrefix() string { return t.urlPrefix }

// Extensions returns a copy of the resolution order.
func (t *Transformer) Extensions() []string {
	return append([]string(nil), t.extensions...)
}

// Transform rewrites every embed in content whose file can be found in
// srcDir, copying it into dstDir. Embeds that cannot be resolved or copied
// are left byte-for-byte unchanged and reported on out.
func (t *Transformer) Transform(content, srcDir, dstDir string, out *outcome.Outcome) Result {
	if out == nil {
		out = outcome.Discard()
	}

	res := Result{}
	embeds := markdown.FindEmbeds(content, t.pattern)
	edits := make([]markdown.Edit, 0, len(embeds))

	for _, e := range embeds {
		ref, ok := t.handle(e, srcDir, dstDir, out, &res)
		res.Images = append(res.Images, ref)
		if ok {
			edits = append(edits, markdown.Edit{Start: e.Start, End: e.End, Replacement: t.link(ref.Alt, ref.URL)})
		}
	}

	rewritten, err := markdown.ApplyEdits(content, edits)
	if err != nil {
		// Regexp matches never overlap; keep the input rather than emit a partial rewrite.
		out.Error("Failed to rewrite image links: %v", err)
		rewritten = content
		res.Failed += res.Processed
		res.Processed = 0
	}

	if res.Processed > 0 {
		plural := "s"
		if res.Processed == 1 {
			plural = ""
		}
		out.Info("Images processed: %d image%s copied", res.Processed, plural)
	}

	res.Content = t.stage(rewritten)
	return res
}

func (t *Transformer) handle(e markdown.Embed, srcDir, dstDir string, out *outcome.Outcome, res *Result) (ImageReference, bool) {
	ref := ImageReference{Raw: e.Raw, Filename: e.Target, Alt: e.Target}
	if strings.TrimSpace(ref.Alt) == "" {
		ref.Alt = t.defaultAlt
	}

	if !filepath.IsLocal(filepath.FromSlash(e.Target)) {
		out.Warning("Image not found: %s", e.Target)
		res.Warnings++
		return ref, false
	}

	if filepath.Ext(e.Target) == "" {
		name, ok := t.resolveExtension(e.Target, srcDir)
		if !ok {
			out.Warning("Image not found with any known extension: %s", e.Target)
			res.Warnings++
			return ref, false
		}
		ref.Filename = name
	}

	src := filepath.Join(srcDir, filepath.FromSlash(ref.Filename))
	if !t.exists(src) {
		out.Warning("Image not found: %s", src)
		res.Warnings++
		return ref, false
	}

	sanitized := post.Sanitize(ref.Filename)
	dst := filepath.Join(dstDir, filepath.FromSlash(sanitized))
	if err := t.copyFile(src, dst); err != nil {
		out.Error("Failed to copy image %s: %v", src, err)
		res.Failed++
		return ref, false
	}
	res.Processed++
	out.Log("Copied image: %s → %s", src, dst)

	if info, err := assets.Inspect(dst); err == nil {
		ref.Width, ref.Height = info.Width, info.Height
		t.logger.Debug("Image copied",
			logfields.Image(sanitized),
			slog.String("format", info.Format),
			slog.Int("width", info.Width),
			slog.Int("height", info.Height))
	}

	ref.URL = path.Join(t.urlPrefix, filepath.ToSlash(sanitized))
	return ref, true
}

func (t *Transformer) resolveExtension(stem, srcDir string) (string, bool) {
	for _, ext := range t.extensions {
		candidate := stem + ext
		if t.exists(filepath.Join(srcDir, filepath.FromSlash(candidate))) {
			return candidate, true
		}
	}
	return "", false
}
