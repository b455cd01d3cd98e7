package post

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoots(t *testing.T) Roots {
	t.Helper()
	base := t.TempDir()
	return Roots{
		Posts:  filepath.Join(base, "vault", "posts"),
		Images: filepath.Join(base, "vault", "attachments"),
		Site:   filepath.Join(base, "site"),
	}
}

func TestResolve_BareFilename(t *testing.T) {
	roots := testRoots(t)

	got := Resolve("My Blog Post 1.md", roots)

	assert.Equal(t, filepath.Join(roots.Posts, "My Blog Post 1.md"), got.SourcePost)
	assert.Equal(t, roots.Images, got.SourceImageDir)
	assert.Equal(t, filepath.Join(roots.Site, "_posts"), got.DestPostDir)
	assert.Equal(t, filepath.Join(roots.Site, "assets", "images"), got.DestImageDir)
	assert.Equal(t, filepath.Join(roots.Site, "_posts", "My-Blog-Post-1.md"), got.DestPost)
}

func TestResolve_AbsolutePathExisting(t *testing.T) {
	roots := testRoots(t)
	elsewhere := filepath.Join(t.TempDir(), "drafts")
	require.NoError(t, os.MkdirAll(elsewhere, 0o755))
	abs := filepath.Join(elsewhere, "Other Post.md")
	require.NoError(t, os.WriteFile(abs, []byte("# hi\n"), 0o644))

	got := Resolve(abs, roots)

	assert.Equal(t, abs, got.SourcePost)
	assert.Equal(t, filepath.Join(roots.Site, "_posts", "Other-Post.md"), got.DestPost)
}

func TestResolve_AbsolutePathMissingFallsBackToPostsFolder(t *testing.T) {
	roots := testRoots(t)
	r := &Resolver{exists: func(string) bool { return false }}
	abs := filepath.Join(string(filepath.Separator), "nowhere", "Ghost Post.md")

	got := r.Resolve(abs, roots)

	assert.Equal(t, filepath.Join(roots.Posts, abs), got.SourcePost)
	assert.Equal(t, "Ghost-Post.md", filepath.Base(got.DestPost))
}

func TestResolve_Idempotent(t *testing.T) {
	roots := testRoots(t)
	assert.Equal(t, Resolve("a b.md", roots), Resolve("a b.md", roots))
}

func TestResolve_NestedIdentifierUsesBaseName(t *testing.T) {
	roots := testRoots(t)
	got := Resolve(filepath.Join("2024", "Trip Notes.md"), roots)
	assert.Equal(t, filepath.Join(roots.Posts, "2024", "Trip Notes.md"), got.SourcePost)
	assert.Equal(t, filepath.Join(roots.Site, "_posts", "Trip-Notes.md"), got.DestPost)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "My-Blog-Post-1.md", Sanitize("My Blog Post 1.md"))
	assert.Equal(t, "a--b.png", Sanitize("a  b.png"))
	assert.Equal(t, "plain.png", Sanitize("plain.png"))
	assert.Equal(t, "Caf\u00e9-menu.png", Sanitize("Cafe\u0301 menu.png"))
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"convert":      ModeConvertOnly,
		"":             ModeConvertOnly,
		"local":        ModeLocalOnly,
		"remote_only":  ModeRemoteOnly,
		"BOTH":         ModeBoth,
		"convert_only": ModeConvertOnly,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("publish")
	assert.Error(t, err)

	assert.True(t, ModeBoth.StartsPreview())
	assert.True(t, ModeBoth.Publishes())
	assert.False(t, ModeLocalOnly.Publishes())
	assert.False(t, ModeRemoteOnly.StartsPreview())
}
