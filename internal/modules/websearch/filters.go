package websearch

import (
	"net/url"
	"strings"
)

const (
	minTitleLength   = 20
	minSnippetLength = 50
	maxSnippetLength = 300

	// titleSimilarityThreshold is the Jaccard similarity above which two
	// titles are treated as the same story.
	titleSimilarityThreshold = 0.7
)

// trustedDomains is the allowlist for the research provider and the source
// quality boost: major news agencies, financial press, international
// outlets, and institutional sources.
var trustedDomains = []string{
	"reuters.com", "apnews.com", "bbc.com", "bbc.co.uk",
	"bloomberg.com", "ft.com", "wsj.com", "cnbc.com", "marketwatch.com",
	"aljazeera.com", "france24.com", "dw.com", "theguardian.com",
	"economist.com", "forbes.com", "axios.com", "politico.com",
	"europa.eu", "un.org", "worldbank.org", "imf.org",
}

// lowQualityPatterns mark URLs from social media, forums, blog platforms,
// and press-release wires. Substring match against the lowercased URL.
var lowQualityPatterns = []string{
	"/forum/", "/blog/", "/comment/", "/user/",
	"reddit.com", "twitter.com", "facebook.com",
	"youtube.com", "tiktok.com", "instagram.com",
	"medium.com", "substack.com", "wordpress.com",
	"blogspot.com", "/press-release/", "prweb.com",
}

// titleStopWords are removed from title word sets before the similarity
// comparison.
var titleStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"as": true,
}

// TrustedDomains returns a copy of the trusted news domain allowlist.
func TrustedDomains() []string {
	out := make([]string, len(trustedDomains))
	copy(out, trustedDomains)
	return out
}

// IsTrustedSource reports whether the URL belongs to a trusted news domain.
// The retriever uses this to boost source quality for web signals.
func IsTrustedSource(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, domain := range trustedDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// isLowQualityURL reports whether the URL matches a low-quality source
// pattern. Empty URLs count as low quality.
func isLowQualityURL(rawURL string) bool {
	if rawURL == "" {
		return true
	}
	lower := strings.ToLower(rawURL)
	for _, pattern := range lowQualityPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// clean applies the post-filters in order: drop results with short titles
// or snippets, drop low-quality URLs, truncate snippets, attach the source
// name, then remove near-duplicate titles.
func clean(results []Result) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if len(r.Title) < minTitleLength || len(r.Snippet) < minSnippetLength {
			continue
		}
		if isLowQualityURL(r.URL) {
			continue
		}
		r.Snippet = truncate(r.Snippet, maxSnippetLength)
		r.Source = SourceFromURL(r.URL)
		kept = append(kept, r)
	}
	return dedupeByTitle(kept)
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

// dedupeByTitle keeps the first of each group of near-duplicate titles.
// Results arrive sorted by provider relevance, so first is best.
func dedupeByTitle(results []Result) []Result {
	if len(results) == 0 {
		return results
	}

	kept := make([]Result, 0, len(results))
	for _, r := range results {
		duplicate := false
		for _, prev := range kept {
			if titlesSimilar(r.Title, prev.Title) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, r)
		}
	}
	return kept
}

// titlesSimilar compares two titles by Jaccard similarity of their word
// sets, stop words removed.
func titlesSimilar(a, b string) bool {
	wordsA := titleWordSet(a)
	wordsB := titleWordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	intersection := 0
	for word := range wordsA {
		if wordsB[word] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return false
	}

	return float64(intersection)/float64(union) >= titleSimilarityThreshold
}

func titleWordSet(title string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if !titleStopWords[word] {
			words[word] = true
		}
	}
	return words
}

// SourceFromURL derives a display name from a result URL: the second-level
// domain label, title-cased. "https://www.reuters.com/world" yields
// "Reuters". Returns "" when the URL cannot be parsed.
func SourceFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return titleCase(parts[len(parts)-2])
	}
	return host
}

func titleCase(word string) string {
	if word == "" {
		return ""
	}
	word = strings.ToLower(word)
	return strings.ToUpper(word[:1]) + word[1:]
}
