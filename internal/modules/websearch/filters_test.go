package websearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTrustedSource(t *testing.T) {
	assert.True(t, IsTrustedSource("https://www.reuters.com/world/europe/article"))
	assert.True(t, IsTrustedSource("https://apnews.com/hub/turkey"))
	assert.True(t, IsTrustedSource("https://www.BBC.co.uk/news"))
	assert.False(t, IsTrustedSource("https://example.com/turkey-news"))
	assert.False(t, IsTrustedSource(""))
}

func TestIsLowQualityURL(t *testing.T) {
	assert.True(t, isLowQualityURL("https://www.reddit.com/r/geopolitics/comments/abc"))
	assert.True(t, isLowQualityURL("https://example.com/blog/my-take-on-turkey"))
	assert.True(t, isLowQualityURL("https://Medium.com/@someone/analysis"))
	assert.True(t, isLowQualityURL("https://news.example.com/press-release/launch"))
	assert.True(t, isLowQualityURL(""))
	assert.False(t, isLowQualityURL("https://www.reuters.com/markets/article"))
}

func TestSourceFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.reuters.com/world/article", "Reuters"},
		{"https://marketwatch.com/story/x", "Marketwatch"},
		{"https://www.bbc.co.uk/news/world", "Co"},
		{"https://localhost/page", "localhost"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceFromURL(tt.url), "url %q", tt.url)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 300))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// Never splits a multi-byte rune.
	s := "abécd" // é is two bytes, at byte offsets 2-3
	assert.Equal(t, "ab", truncate(s, 3))
	assert.Equal(t, "abé", truncate(s, 4))
}

func TestTitlesSimilar(t *testing.T) {
	assert.True(t, titlesSimilar(
		"Turkey central bank raises interest rates",
		"Turkey central bank raises interest rates",
	))
	assert.True(t, titlesSimilar(
		"Turkey central bank raises interest rates",
		"The Turkey central bank raises the interest rates",
	))
	assert.False(t, titlesSimilar(
		"Turkey central bank raises interest rates",
		"Energy pipeline agreement signed in Brussels",
	))
	assert.False(t, titlesSimilar("", "Turkey central bank raises interest rates"))
	assert.False(t, titlesSimilar("the of and", "the of and"))
}

func TestCleanOrderAndSourceAttach(t *testing.T) {
	results := []Result{
		{
			Title:   "Turkey central bank raises rates to defend lira",
			URL:     "https://www.reuters.com/markets/turkey",
			Snippet: goodSnippet,
		},
		{
			Title:   "Too short",
			URL:     "https://www.reuters.com/markets/short",
			Snippet: goodSnippet,
		},
	}

	cleaned := clean(results)
	assert.Len(t, cleaned, 1)
	assert.Equal(t, "Reuters", cleaned[0].Source)
}
