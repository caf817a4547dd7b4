package websearch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/domain"
)

// refineTimeout bounds the query refinement call. Refinement is optional
// polish, so the deadline is short and failure falls through to the
// deterministic query.
const refineTimeout = 5 * time.Second

const refineMaxTokens = 50

// queryPrefixes are labels models wrap around the query despite being told
// not to. Checked case-insensitively, in order.
var queryPrefixes = []string{
	"here's a concise and natural search query:",
	"here's a search query:",
	"query:",
	"search query:",
	"the query is:",
	"here is the query:",
}

// instructionWords reject refined queries that echo the prompt instead of
// answering it.
var instructionWords = map[string]bool{
	"here":     true,
	"query":    true,
	"search":   true,
	"create":   true,
	"generate": true,
	"return":   true,
}

// BuildQuery produces the search query for a theme. The preferred path asks
// the LLM for a natural phrasing; any failure, timeout, or unusable output
// falls back to the deterministic query, so this never fails. keywords are
// the theme's catalog keywords, used to seed the refinement prompt.
func (s *Service) BuildQuery(ctx context.Context, profile domain.AssetProfile, theme domain.ThemeRelevance, keywords []string, lookbackDays int) string {
	if s.cfg.UseLLMForQueries && s.refiner != nil && s.refiner.Enabled() {
		if query := s.refineQuery(ctx, profile, theme, keywords, lookbackDays); query != "" {
			return query
		}
	}
	return fallbackQuery(profile, theme, lookbackDays)
}

func (s *Service) refineQuery(ctx context.Context, profile domain.AssetProfile, theme domain.ThemeRelevance, keywords []string, lookbackDays int) string {
	ctx, cancel := context.WithTimeout(ctx, refineTimeout)
	defer cancel()

	prompt := refinementPrompt(profile, theme, keywords, lookbackDays)
	raw, err := s.refiner.Complete(ctx, anthropic.UserMessage(anthropic.ModelHaiku, refineMaxTokens, 0, prompt))
	if err != nil {
		s.log.Debug().Err(err).Str("theme", theme.Theme).Msg("Query refinement failed, using fallback")
		return ""
	}

	query := cleanRefinedQuery(raw)
	if !isUsableQuery(query) {
		s.log.Debug().Str("theme", theme.Theme).Str("raw", raw).Msg("Refined query rejected")
		return ""
	}
	return query
}

// refinementPrompt builds the instruction for the query generator. The year
// hints track the wall clock so the prompt does not go stale.
func refinementPrompt(profile domain.AssetProfile, theme domain.ThemeRelevance, keywords []string, lookbackDays int) string {
	var contextParts []string
	if profile.Country != "" {
		contextParts = append(contextParts, "Country: "+profile.Country)
	}
	if profile.Region != "" {
		contextParts = append(contextParts, "Region: "+profile.Region)
	}
	if profile.Sector != "" && profile.Sector != "Diversified" && profile.Sector != "Cash" {
		contextParts = append(contextParts, "Sector: "+profile.Sector)
	}
	if profile.AssetClass != "" {
		contextParts = append(contextParts, "Asset Class: "+profile.AssetClass)
	}

	timeContext := ""
	if lookbackDays <= 7 {
		timeContext = "recent"
	} else if lookbackDays <= 365 {
		timeContext = "this year"
	}

	keywordHint := "N/A"
	if len(keywords) > 0 {
		if len(keywords) > 3 {
			keywords = keywords[:3]
		}
		keywordHint = strings.Join(keywords, ", ")
	}

	year := time.Now().Year()

	return fmt.Sprintf(`You are a search query generator for financial/geopolitical news. Return ONLY the search query text.

Theme: %s
Context: %s
Keywords: %s
Time: %s

Rules:
- 3-6 words only
- Include specific location (country/region)
- Include specific theme keywords
- Include "%d" or "%d" for recent news
- NO generic words like "news", "latest", "recent"
- Return ONLY the query, no labels or explanations

Good examples:
Russia energy exports sanctions %d
China Taiwan military tensions %d
Turkey currency crisis financial impact

Bad examples:
Russia news (too generic)
Latest developments in China (has "latest")
What is happening with Turkey (question format)

Your query:`,
		theme.DisplayName,
		strings.Join(contextParts, ", "),
		keywordHint,
		timeContext,
		year, year+1,
		year, year+1,
	)
}

// cleanRefinedQuery strips the labels, quotes, and explanations models wrap
// around the query text.
func cleanRefinedQuery(raw string) string {
	query := strings.TrimSpace(raw)

	lower := strings.ToLower(query)
	for _, prefix := range queryPrefixes {
		if strings.HasPrefix(lower, prefix) {
			query = strings.TrimSpace(query[len(prefix):])
			break
		}
	}

	query = strings.TrimSpace(strings.Trim(query, `"'`))

	// First line only, in case the model appended an explanation.
	if idx := strings.IndexByte(query, '\n'); idx >= 0 {
		query = strings.TrimSpace(query[:idx])
	}

	query = strings.TrimRight(query, ".,;:!?")

	// A remaining colon means a label slipped through; keep what follows.
	if idx := strings.IndexByte(query, ':'); idx >= 0 {
		query = query[idx+1:]
	}

	return strings.TrimSpace(query)
}

// isUsableQuery accepts only plausible search strings: 3 to 10 words, not
// starting with an instruction echo.
func isUsableQuery(query string) bool {
	words := strings.Fields(query)
	if len(words) < 3 || len(words) > 10 {
		return false
	}
	return !instructionWords[strings.ToLower(words[0])]
}

// fallbackQuery is the deterministic query used when refinement is disabled
// or rejected: location, theme, a financial-context token, and a recency
// token for short lookbacks.
func fallbackQuery(profile domain.AssetProfile, theme domain.ThemeRelevance, lookbackDays int) string {
	var parts []string
	if profile.Country != "" {
		parts = append(parts, profile.Country)
	} else if profile.Region != "" {
		parts = append(parts, profile.Region)
	}

	name := theme.DisplayName
	if name == "" {
		name = strings.ReplaceAll(theme.Theme, "_", " ")
	}
	if name != "" {
		parts = append(parts, strings.ToLower(name))
	}

	if profile.AssetClass == "Equities" {
		parts = append(parts, "financial markets")
	} else if profile.AssetClass != "" {
		parts = append(parts, "investment")
	}

	query := strings.Join(parts, " ")

	switch {
	case lookbackDays <= 7:
		query += " recent news"
	case lookbackDays <= 30:
		query += " " + strconv.Itoa(time.Now().Year())
	}

	return query
}
