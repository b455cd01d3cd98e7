package imagelinks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jekyllpress/internal/markdown"
	"git.home.luguber.info/inful/jekyllpress/internal/outcome"
	"git.home.luguber.info/inful/jekyllpress/internal/post"
)

func setupDirs(t *testing.T, images ...string) (string, string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "attachments")
	dst := filepath.Join(t.TempDir(), "assets", "images")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.MkdirAll(dst, 0o755))
	for _, name := range images {
		p := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("img:"+name), 0o644))
	}
	return src, dst
}

func TestTransform_ResolvesMissingExtension(t *testing.T) {
	src, dst := setupDirs(t, "diagram.png")
	out := outcome.Discard()

	res := New().Transform("Intro\n![[diagram]]\n", src, dst, out)

	assert.Equal(t, "Intro\n![diagram](/assets/images/diagram.png)\n", res.Content)
	assert.Equal(t, 1, res.Processed)
	assert.FileExists(t, filepath.Join(dst, "diagram.png"))
	require.Len(t, res.Images, 1)
	assert.Equal(t, "diagram.png", res.Images[0].Filename)
	assert.Equal(t, "![[diagram]]", res.Images[0].Raw)
}

func TestTransform_ExtensionOrder(t *testing.T) {
	src, dst := setupDirs(t, "pic.jpg", "pic.png")

	res := New().Transform("![[pic]]", src, dst, outcome.Discard())
	assert.Equal(t, "![pic](/assets/images/pic.png)", res.Content)

	res = New(WithExtensions(".jpg", ".png")).Transform("![[pic]]", src, dst, outcome.Discard())
	assert.Equal(t, "![pic](/assets/images/pic.jpg)", res.Content)
}

func TestTransform_MissingImageLeftUnchanged(t *testing.T) {
	src, dst := setupDirs(t, "real.png")
	out := outcome.Discard()
	content := "a ![[ghost]] b ![[real.png]] c ![[gone.png]]"

	res := New().Transform(content, src, dst, out)

	assert.Equal(t, "a ![[ghost]] b ![real.png](/assets/images/real.png) c ![[gone.png]]", res.Content)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Warnings)
	assert.Equal(t, 2, out.Count(outcome.LevelWarning))
	assert.Zero(t, out.Count(outcome.LevelError))
}

func TestTransform_RoundTripCount(t *testing.T) {
	names := []string{"a.png", "b.jpg", "c.gif", "d.webp", "e.svg"}
	src, dst := setupDirs(t, names...)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "para ![[%s]]\n\n", n)
	}

	res := New().Transform(b.String(), src, dst, outcome.Discard())

	assert.Equal(t, len(names), res.Processed)
	assert.False(t, markdown.HasEmbeds(res.Content))
	assert.Len(t, markdown.ImagesUnder(markdown.ExtractImages([]byte(res.Content)), "/assets/images/"), len(names))
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, len(names))
}

func TestTransform_SanitizesLikePostNames(t *testing.T) {
	src, dst := setupDirs(t, "My Screen Shot.png")

	res := New().Transform("![[My Screen Shot]]", src, dst, outcome.Discard())

	sanitized := post.Sanitize("My Screen Shot.png")
	assert.Equal(t, "My-Screen-Shot.png", sanitized)
	assert.Equal(t, "![My Screen Shot](/assets/images/"+sanitized+")", res.Content)
	assert.FileExists(t, filepath.Join(dst, sanitized))
}

func TestTransform_SubdirectoryToken(t *testing.T) {
	src, dst := setupDirs(t, "2024/chart.png")

	res := New().Transform("![[2024/chart]]", src, dst, outcome.Discard())

	assert.Equal(t, "![2024/chart](/assets/images/2024/chart.png)", res.Content)
	assert.FileExists(t, filepath.Join(dst, "2024", "chart.png"))
}

func TestTransform_RejectsEscapingToken(t *testing.T) {
	src, dst := setupDirs(t)
	outside := filepath.Join(filepath.Dir(src), "secret.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	res := New().Transform("![[../secret.png]]", src, dst, outcome.Discard())

	assert.Equal(t, "![[../secret.png]]", res.Content)
	assert.Equal(t, 1, res.Warnings)
	assert.Zero(t, res.Processed)
}

func TestTransform_CopyFailureContinues(t *testing.T) {
	src, dst := setupDirs(t, "bad.png", "good.png")
	out := outcome.Discard()
	copier := func(from, to string) error {
		if filepath.Base(from) == "bad.png" {
			return errors.New("disk full")
		}
		return os.WriteFile(to, []byte("ok"), 0o644)
	}

	res := New(WithCopier(copier)).Transform("![[bad]] ![[good]]", src, dst, out)

	assert.Equal(t, "![[bad]] ![good](/assets/images/good.png)", res.Content)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, out.Count(outcome.LevelError))
}

func TestTransform_CustomStageRunsAfterImages(t *testing.T) {
	src, dst := setupDirs(t, "x.png")
	var seen string
	stage := func(s string) string {
		seen = s
		return strings.ToUpper(s)
	}

	res := New(WithStage(stage)).Transform("![[x]]", src, dst, outcome.Discard())

	assert.Equal(t, "![x](/assets/images/x.png)", seen)
	assert.Equal(t, "![X](/ASSETS/IMAGES/X.PNG)", res.Content)
}

func TestTransform_CustomLinkAndPrefix(t *testing.T) {
	src, dst := setupDirs(t, "x.png")
	link := func(alt, url string) string {
		return fmt.Sprintf(`{%% include img.html src="%s" alt="%s" %%}`, url, alt)
	}

	res := New(WithLinkFunc(link), WithURLPrefix("/img/")).Transform("![[x]]", src, dst, outcome.Discard())

	assert.Equal(t, `{% include img.html src="/img/x.png" alt="x" %}`, res.Content)
}

func TestTransform_RootPrefixKeepsLinksAbsolute(t *testing.T) {
	src, dst := setupDirs(t, "diagram.png")

	for _, prefix := range []string{"/", "//"} {
		tr := New(WithURLPrefix(prefix))
		assert.Equal(t, "/", tr.URLPrefix())
		res := tr.Transform("![[diagram]]", src, dst, outcome.Discard())
		assert.Equal(t, "![diagram](/diagram.png)", res.Content, prefix)
	}
}

func TestTransform_CustomPatternAndDefaultAlt(t *testing.T) {
	src, dst := setupDirs(t, "x.png")
	pattern := regexp.MustCompile(`\{\{img:(.*?)\}\}`)
	link := func(alt, url string) string { return alt + "|" + url }

	tr := New(WithPattern(pattern), WithLinkFunc(link), WithDefaultAlt("Picture"))
	res := tr.Transform("{{img:x}} {{img:}}", src, dst, outcome.Discard())

	assert.Equal(t, "x|/assets/images/x.png {{img:}}", res.Content)
	require.Len(t, res.Images, 2)
	assert.Equal(t, "Picture", res.Images[1].Alt)
}

func TestTransform_SummaryLine(t *testing.T) {
	src, dst := setupDirs(t, "a.png", "b.png")
	out := outcome.Discard()

	New().Transform("![[a]] ![[b]]", src, dst, out)

	var found bool
	for _, m := range out.Messages() {
		if m.Message == "Images processed: 2 images copied" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTransform_NoEmbeds(t *testing.T) {
	src, dst := setupDirs(t)
	out := outcome.Discard()

	res := New().Transform("plain text ![alt](x.png)", src, dst, out)

	assert.Equal(t, "plain text ![alt](x.png)", res.Content)
	assert.Empty(t, out.Messages())
}

func TestAddExtension(t *testing.T) {
	tr := New()
	tr.AddExtension("BMP")
	tr.AddExtension(".png")
	tr.AddExtension(" ")

	exts := tr.Extensions()
	assert.Equal(t, append(append([]string(nil), DefaultExtensions...), ".bmp"), exts)

	exts[0] = "mutated"
	assert.Equal(t, ".png", tr.Extensions()[0])
}
