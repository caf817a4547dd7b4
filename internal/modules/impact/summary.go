package impact

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/domain"
)

// summaryTimeout bounds one summary generation, covering every model in the
// cascade.
const summaryTimeout = 20 * time.Second

const summaryMaxTokens = 250

// summaryTemperature allows some variation in phrasing while keeping the
// assessment language stable.
const summaryTemperature = 0.3

// maxSummarySignals caps how many signals the prompt quotes.
const maxSummarySignals = 5

// LLMClient is the messages API surface summary generation needs.
// Implemented by anthropic.Client; an interface so tests can stub it.
type LLMClient interface {
	Enabled() bool
	CompleteWithModels(ctx context.Context, models []string, req anthropic.Request) (string, error)
}

// Summarizer writes the 2-3 sentence suitability explanation for a theme
// verdict. Summaries are persisted for a day keyed by the signal set, so an
// unchanged retrieval reuses the same wording.
type Summarizer struct {
	llm   LLMClient
	store *clientdata.Repository
	log   zerolog.Logger
}

// NewSummarizer creates a theme summarizer. store may be nil to disable the
// persistent cache layer.
func NewSummarizer(llm LLMClient, store *clientdata.Repository, log zerolog.Logger) *Summarizer {
	return &Summarizer{
		llm:   llm,
		store: store,
		log:   log.With().Str("service", "impact_summarizer").Logger(),
	}
}

// ThemeSummary explains why a theme received its direction and magnitude.
// It never fails: without a configured LLM it returns a short deterministic
// line, and a generation error falls back to a deterministic line naming
// the asset.
func (s *Summarizer) ThemeSummary(ctx context.Context, profile domain.AssetProfile, theme domain.ThemeRelevance, signals []domain.IntelligenceSignal, direction domain.Direction, magnitude, confidence float64) string {
	if s.llm == nil || !s.llm.Enabled() {
		return fmt.Sprintf("Based on %d signals, this theme shows %s impact with %d%% confidence.",
			len(signals), direction, int(confidence*100))
	}

	key := summaryCacheKey(profile, theme, signals, direction, magnitude, confidence)
	if s.store != nil {
		if raw, err := s.store.GetIfFresh(clientdata.TableSummaries, key); err == nil && raw != nil {
			var cached string
			if err := json.Unmarshal(raw, &cached); err == nil && cached != "" {
				return cached
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	prompt := summaryPrompt(profile, theme, signals, direction, magnitude, confidence)
	text, err := s.llm.CompleteWithModels(ctx, anthropic.SummaryCascade, anthropic.UserMessage("", summaryMaxTokens, summaryTemperature, prompt))
	if err != nil {
		s.log.Warn().Err(err).Str("theme", theme.Theme).Msg("Failed to generate theme summary, using fallback")
		return fmt.Sprintf("Based on %d intelligence signals, this theme shows %s impact with %d%% confidence for %s.",
			len(signals), direction, int(confidence*100), profile.Name)
	}

	summary := strings.TrimSpace(text)
	if s.store != nil {
		if err := s.store.Store(clientdata.TableSummaries, key, summary, clientdata.TTLSummary); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist theme summary")
		}
	}

	return summary
}

func summaryPrompt(profile domain.AssetProfile, theme domain.ThemeRelevance, signals []domain.IntelligenceSignal, direction domain.Direction, magnitude, confidence float64) string {
	top := topSignals(signals, maxSummarySignals)
	lines := make([]string, 0, len(top))
	for _, signal := range top {
		lines = append(lines, fmt.Sprintf("- %s (%s)", signal.Title, sourceLabel(signal)))
	}

	country := profile.Country
	if country == "" {
		country = "N/A"
	}

	return fmt.Sprintf(`You are a financial analyst preparing geopolitical risk analysis for investment suitability reporting. Provide a clear, professional summary explaining why this theme has a %s impact.

ASSET CONTEXT:
- Name: %s
- Country: %s
- Sector: %s
- Region: %s

THEME: %s
Theme Relevance: %.2f

TOP INTELLIGENCE SIGNALS (%d total):
%s

ASSESSMENT:
- Direction: %s
- Magnitude: %d%%
- Confidence: %d%%

Write a 2-3 sentence summary for suitability documentation:
1. What the intelligence signals indicate about this geopolitical theme
2. Why this creates a %s impact on the asset
3. The investment implications based on this analysis

Requirements:
- Use professional, compliance-appropriate language
- Reference specific signals when relevant
- Be objective and evidence-based
- Suitable for client-facing investment documentation`,
		direction,
		profile.Name, country, profile.Sector, profile.Region,
		displayTheme(theme.Theme), theme.RelevanceScore,
		len(signals), strings.Join(lines, "\n"),
		strings.ToUpper(string(direction)), int(magnitude*100), int(confidence*100),
		direction)
}

// topSignals returns the n highest-relevance signals without mutating the
// input, URL ascending as tiebreaker.
func topSignals(signals []domain.IntelligenceSignal, n int) []domain.IntelligenceSignal {
	sorted := make([]domain.IntelligenceSignal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RelevanceScore != sorted[j].RelevanceScore {
			return sorted[i].RelevanceScore > sorted[j].RelevanceScore
		}
		return sorted[i].URL < sorted[j].URL
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func sourceLabel(signal domain.IntelligenceSignal) string {
	if signal.SourceName != "" {
		return signal.SourceName
	}
	if signal.Source != "" {
		return string(signal.Source)
	}
	return "unknown"
}

// displayTheme renders a theme key ("political_instability") as a heading
// ("Political Instability").
func displayTheme(theme string) string {
	words := strings.Split(strings.ReplaceAll(theme, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// summaryCacheKey digests everything the prompt shows: the asset, the theme
// verdict at prompt granularity, and the signal set behind it.
func summaryCacheKey(profile domain.AssetProfile, theme domain.ThemeRelevance, signals []domain.IntelligenceSignal, direction domain.Direction, magnitude, confidence float64) string {
	parts := []string{
		profile.HoldingID,
		profile.Name,
		theme.Theme,
		strconv.FormatFloat(theme.RelevanceScore, 'f', 2, 64),
		string(direction),
		strconv.Itoa(int(magnitude * 100)),
		strconv.Itoa(int(confidence * 100)),
	}
	for _, signal := range signals {
		parts = append(parts, signal.Title+"|"+signal.URL)
	}

	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
