package post

import (
	"os"
	"path/filepath"
)

// Fixed subpaths of the destination site root.
const (
	PostsSubdir  = "_posts"
	ImagesSubdir = "assets/images"
	ImagesURL    = "/assets/images"
)

// Source provides the configured roots. The config package implements it.
type Source interface {
	PostsFolder() string
	ImagesFolder() string
	SiteRoot() string
}

// Roots is a plain Source, handy for tests and callers without a config file.
type Roots struct {
	Posts  string
	Images string
	Site   string
}

func (r Roots) PostsFolder() string  { return r.Posts }
func (r Roots) ImagesFolder() string { return r.Images }
func (r Roots) SiteRoot() string     { return r.Site }

// DestPostDir returns the posts directory of a site root.
func DestPostDir(siteRoot string) string { return filepath.Join(siteRoot, PostsSubdir) }

// DestImageDir returns the image directory of a site root.
func DestImageDir(siteRoot string) string {
	return filepath.Join(siteRoot, filepath.FromSlash(ImagesSubdir))
}

// ResolvedPaths are the five paths one conversion needs.
type ResolvedPaths struct {
	SourcePost     string
	SourceImageDir string
	DestImageDir   string
	DestPostDir    string
	DestPost       string
}

// Resolver computes ResolvedPaths. Its only dependency on the filesystem is the
// existence check that decides whether an absolute identifier is used literally.
type Resolver struct {
	exists func(path string) bool
}

// NewResolver returns a resolver backed by os.Stat.
func NewResolver() *Resolver {
	return &Resolver{exists: func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	}}
}

// Resolve derives the paths for identifier. It never fails; validity is checked downstream.
func (r *Resolver) Resolve(identifier string, src Source) ResolvedPaths {
	sourcePost := filepath.Join(src.PostsFolder(), identifier)
	if filepath.IsAbs(identifier) && r.exists(identifier) {
		sourcePost = identifier
	}
	destPostDir := DestPostDir(src.SiteRoot())
	return ResolvedPaths{
		SourcePost:     sourcePost,
		SourceImageDir: src.ImagesFolder(),
		DestImageDir:   DestImageDir(src.SiteRoot()),
		DestPostDir:    destPostDir,
		DestPost:       filepath.Join(destPostDir, Sanitize(filepath.Base(sourcePost))),
	}
}

// Resolve is a convenience wrapper around NewResolver().Resolve.
func Resolve(identifier string, src Source) ResolvedPaths {
	return NewResolver().Resolve(identifier, src)
}
