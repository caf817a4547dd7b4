package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/pkg/embedded"
)

func matcherFixture() *CountryMatcher {
	return NewCountryMatcher([]embedded.Country{
		{ID: "TR", Name: "Turkey", Aliases: []string{"Turkey", "Türkiye", "Republic of Türkiye", "TUR", "TR"}},
		{ID: "UA", Name: "Ukraine", Aliases: []string{"Ukraine", "UKR"}},
		{ID: "DE", Name: "Germany", Aliases: []string{"Germany", "Federal Republic of Germany", "DEU"}},
	})
}

func TestMatchFindsCountryByName(t *testing.T) {
	matches := matcherFixture().Match("Protests spread in Turkey after the vote")

	require.Len(t, matches, 1)
	assert.Equal(t, "TR", matches[0].ID)
	assert.Equal(t, "Turkey", matches[0].Name)
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	matches := matcherFixture().Match("UKRAINE signs grain corridor deal")

	require.Len(t, matches, 1)
	assert.Equal(t, "UA", matches[0].ID)
}

func TestMatchIgnoresOneAndTwoCharAliases(t *testing.T) {
	// "TR" is in the alias list but too short to be trusted.
	assert.Empty(t, matcherFixture().Match("TR raises rates again"))
}

func TestMatchRequiresWordBoundaryForCodes(t *testing.T) {
	matches := matcherFixture().Match("UKR grain convoy departs")
	require.Len(t, matches, 1)
	assert.Equal(t, "UA", matches[0].ID)

	// "tur" inside another word is not a mention.
	assert.Empty(t, matcherFixture().Match("Turbine exports doubled"))
}

func TestMatchUsesSubstringForLongerAliases(t *testing.T) {
	matches := matcherFixture().Match("The Türkiye-based carrier expands routes")

	require.Len(t, matches, 1)
	assert.Equal(t, "TR", matches[0].ID)
}

func TestMatchReportsEachCountryOnce(t *testing.T) {
	matches := matcherFixture().Match("Turkey backs the Republic of Türkiye rebrand")

	require.Len(t, matches, 1)
	assert.Equal(t, "TR", matches[0].ID)
}

func TestMatchReturnsTableOrder(t *testing.T) {
	matches := matcherFixture().Match("Germany pledges air defense support for Ukraine")

	require.Len(t, matches, 2)
	assert.Equal(t, "UA", matches[0].ID)
	assert.Equal(t, "DE", matches[1].ID)
}

func TestMatchEmptyText(t *testing.T) {
	assert.Empty(t, matcherFixture().Match(""))
}

func TestMatchAgainstEmbeddedTable(t *testing.T) {
	countries, err := embedded.Countries()
	require.NoError(t, err)

	matches := NewCountryMatcher(countries).Match(
		"Escalation along the border between Russia and Ukraine",
	)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	assert.Contains(t, ids, "RU")
	assert.Contains(t, ids, "UA")
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text string
		word string
		want bool
	}{
		{"usa sanctions extended", "usa", true},
		{"new usa tariffs", "usa", true},
		{"talks with usa", "usa", true},
		{"thousand protest", "usa", false},
		{"usable surplus", "usa", false},
		{"usa-led coalition", "usa", true},
		{"", "usa", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, containsWord(tt.text, tt.word), "text %q", tt.text)
	}
}
