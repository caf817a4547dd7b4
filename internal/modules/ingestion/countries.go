package ingestion

import (
	"strings"

	"github.com/aristath/argus/pkg/embedded"
)

// CountryMatch identifies one country mentioned in a text.
type CountryMatch struct {
	ID   string
	Name string
}

// CountryMatcher finds country mentions by alias lookup. Matching is
// case-insensitive. Aliases of one or two characters are ignored
// outright, three-character aliases (mostly ISO codes) must appear as a
// whole word, and longer aliases match as substrings.
type CountryMatcher struct {
	countries []embedded.Country
}

// NewCountryMatcher creates a matcher over the given country table. The
// table order decides the order of reported matches.
func NewCountryMatcher(countries []embedded.Country) *CountryMatcher {
	return &CountryMatcher{countries: countries}
}

// Match returns every country with an alias hit in the text, at most
// once per country, in table order.
func (m *CountryMatcher) Match(text string) []CountryMatch {
	lowered := strings.ToLower(text)

	var matches []CountryMatch
	for _, country := range m.countries {
		for _, alias := range country.Aliases {
			alias = strings.ToLower(alias)
			if len(alias) <= 2 {
				continue
			}
			if len(alias) == 3 {
				if !containsWord(lowered, alias) {
					continue
				}
			} else if !strings.Contains(lowered, alias) {
				continue
			}
			matches = append(matches, CountryMatch{ID: country.ID, Name: country.Name})
			break
		}
	}
	return matches
}

// containsWord reports whether word occurs in text delimited by
// non-word characters. Both arguments must already be lowercase.
func containsWord(text, word string) bool {
	for start := 0; ; start++ {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		start += idx
		end := start + len(word)
		if (start == 0 || !isWordChar(text[start-1])) && (end == len(text) || !isWordChar(text[end])) {
			return true
		}
	}
}

func isWordChar(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}
