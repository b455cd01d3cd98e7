package markdown

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindEmbeds_OrderAndOffsets(t *testing.T) {
	src := "a ![[one.png]] b ![[Two Words]] c"
	embeds := FindEmbeds(src, nil)

	require.Len(t, embeds, 2)
	require.Equal(t, "one.png", embeds[0].Target)
	require.Equal(t, "![[one.png]]", embeds[0].Raw)
	require.Equal(t, src[embeds[0].Start:embeds[0].End], embeds[0].Raw)
	require.Equal(t, "Two Words", embeds[1].Target)
	require.Less(t, embeds[0].End, embeds[1].Start)
}

func TestFindEmbeds_NonGreedyOnOneLine(t *testing.T) {
	embeds := FindEmbeds("![[a]]![[b]]", nil)
	require.Len(t, embeds, 2)
	require.Equal(t, "a", embeds[0].Target)
	require.Equal(t, "b", embeds[1].Target)
}

func TestFindEmbeds_DoesNotSpanLines(t *testing.T) {
	require.Empty(t, FindEmbeds("![[broken\nname]]", nil))
}

func TestFindEmbeds_IgnoresPlainLinks(t *testing.T) {
	require.Empty(t, FindEmbeds("![alt](x.png) and [[note]]", nil))
	require.False(t, HasEmbeds("![alt](x.png)"))
	require.True(t, HasEmbeds("x ![[y]]"))
}

func TestFindEmbeds_CustomPattern(t *testing.T) {
	pattern := regexp.MustCompile(`\{\{img:(.*?)\}\}`)
	embeds := FindEmbeds("see {{img:chart}}", pattern)
	require.Len(t, embeds, 1)
	require.Equal(t, "chart", embeds[0].Target)
}
