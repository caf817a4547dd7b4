package retrieval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/argus/internal/domain"
)

// semanticConcurrency bounds the in-flight semantic adapter calls.
const semanticConcurrency = 8

// semanticFilter annotates every signal with the adapter's verdict and
// drops the ones below the threshold. An adapter failure keeps the signal
// with semantic score 0 and the error recorded in the reasoning, so an
// LLM outage degrades to keyword scoring instead of erasing the corpus.
func (r *Retriever) semanticFilter(
	ctx context.Context,
	signals []domain.IntelligenceSignal,
	profile domain.AssetProfile,
	themeNames []string,
	threshold float64,
) []domain.IntelligenceSignal {
	if len(signals) == 0 {
		return signals
	}

	keep := make([]bool, len(signals))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(semanticConcurrency)

	for i := range signals {
		i := i
		g.Go(func() error {
			sig := &signals[i]
			analysis, err := r.analyzer.AnalyzeSignal(ctx, sig.Title, sig.Summary, profile.Country, profile.Sector, themeNames, threshold)
			if err != nil {
				sig.SemanticRelevance = 0
				sig.SemanticReasoning = analysis.Reasoning
				keep[i] = true
				return nil
			}

			sig.SemanticRelevance = analysis.RelevanceScore
			sig.SemanticConfidence = analysis.ConfidenceScore
			sig.SemanticReasoning = analysis.Reasoning

			if !analysis.Relevant {
				return nil
			}

			if sig.ThemeMatch == "" && len(analysis.MatchedThemes) > 0 {
				sig.ThemeMatch = analysis.MatchedThemes[0]
			}
			keep[i] = true
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]domain.IntelligenceSignal, 0, len(signals))
	dropped := 0
	for i, sig := range signals {
		if keep[i] {
			kept = append(kept, sig)
		} else {
			dropped++
		}
	}

	r.log.Debug().Int("kept", len(kept)).Int("dropped", dropped).Msg("Semantic filter applied")
	return kept
}
