package georisk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/events"
)

type panicAssessor struct{}

func (p *panicAssessor) Assess(ctx context.Context, profile domain.AssetProfile, themes []domain.ThemeRelevance, signals []domain.IntelligenceSignal) domain.AggregateImpact {
	panic("assessor exploded")
}

func collectStream(t *testing.T, f *engineFixture, ctx context.Context, lookbackDays int) []StepUpdate {
	t.Helper()
	var updates []StepUpdate
	f.engine.RunPipelineStream(ctx, pipelineHolding(), domain.RiskToleranceMedium, lookbackDays, func(u StepUpdate) {
		updates = append(updates, u)
	})
	return updates
}

func TestRunPipelineStreamEventSequence(t *testing.T) {
	f := newEngineFixture()

	updates := collectStream(t, f, context.Background(), 30)
	require.Len(t, updates, 5)

	wantIDs := []string{StepCharacterization, StepThemes, StepIntelligence, StepImpact, StepFinal}
	wantNames := []string{
		"Asset Characterization",
		"Theme Identification",
		"Intelligence Retrieval",
		"Impact Assessment",
		"Analysis Complete",
	}
	for i, update := range updates {
		assert.Equal(t, wantIDs[i], update.StepID)
		assert.Equal(t, wantNames[i], update.StepName)
		assert.Equal(t, StatusCompleted, update.Status)
		assert.Empty(t, update.Error)
		assert.GreaterOrEqual(t, update.DurationMS, int64(0))
		assert.NotNil(t, update.Data)
	}
}

func TestRunPipelineStreamPayloads(t *testing.T) {
	f := newEngineFixture()

	updates := collectStream(t, f, context.Background(), 30)
	require.Len(t, updates, 5)

	charData, ok := updates[0].Data.(characterizationData)
	require.True(t, ok)
	assert.Equal(t, f.characterizer.profile, charData.Profile)
	assert.NotEmpty(t, charData.Summary)

	themeData, ok := updates[1].Data.(themesData)
	require.True(t, ok)
	assert.Equal(t, f.mapper.themes, themeData.Themes)
	assert.Equal(t, []string{"sanctions", "energy_security"}, themeData.TopThemes)

	intelData, ok := updates[2].Data.(intelligenceData)
	require.True(t, ok)
	assert.Equal(t, 2, intelData.SignalCount)
	assert.Len(t, intelData.Signals, 2)
	assert.Equal(t, f.retriever.result.Validation, intelData.Validation)

	impData, ok := updates[3].Data.(impactData)
	require.True(t, ok)
	assert.Equal(t, f.assessor.impact, impData.Impact)
	assert.Equal(t, domain.RiskToleranceMedium, impData.RiskTolerance)
	assert.Equal(t, 30, impData.LookbackDays)
	assert.InDelta(t, 1.0, impData.Probabilities.Sum(), 1e-9)
	assert.NotEmpty(t, impData.ProbabilitySummary)

	result, ok := updates[4].Data.(*DetailedResult)
	require.True(t, ok)
	assert.Equal(t, f.assessor.impact, result.Impact)
	assert.Equal(t, 2, result.SignalCount)

	stored, found := f.recent.Get(result.ScanID)
	require.True(t, found)
	assert.Equal(t, result, stored)
}

func TestRunPipelineStreamDefaultLookback(t *testing.T) {
	f := newEngineFixture()

	updates := collectStream(t, f, context.Background(), 0)
	require.Len(t, updates, 5)

	impData, ok := updates[3].Data.(impactData)
	require.True(t, ok)
	assert.Equal(t, 90, impData.LookbackDays)
	assert.Equal(t, 90, f.retriever.gotLookback)
}

func TestRunPipelineStreamCharacterizationError(t *testing.T) {
	f := newEngineFixture()
	f.characterizer.err = &domain.InputError{Field: "holding", Reason: "name is required"}

	var failed *events.Event
	f.manager.Bus().Subscribe(events.ScanFailed, func(e *events.Event) { failed = e })

	updates := collectStream(t, f, context.Background(), 30)
	require.Len(t, updates, 1)

	assert.Equal(t, StepError, updates[0].StepID)
	assert.Equal(t, "Pipeline Error", updates[0].StepName)
	assert.Equal(t, StatusError, updates[0].Status)
	assert.Equal(t, int64(0), updates[0].DurationMS)
	assert.Equal(t, "invalid holding: name is required", updates[0].Error)

	assert.NotNil(t, failed)
	assert.Equal(t, 0, f.recent.Len())
}

func TestRunPipelineStreamPanicBecomesErrorEvent(t *testing.T) {
	f := newEngineFixture()
	f.engine.assessor = &panicAssessor{}

	updates := collectStream(t, f, context.Background(), 30)
	require.Len(t, updates, 4)

	assert.Equal(t, StepIntelligence, updates[2].StepID)

	last := updates[3]
	assert.Equal(t, StepError, last.StepID)
	assert.Equal(t, StatusError, last.Status)
	assert.Equal(t, "assessor exploded", last.Error)

	assert.Equal(t, 0, f.recent.Len())
}

func TestRunPipelineStreamStopsWhenCancelled(t *testing.T) {
	f := newEngineFixture()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var updates []StepUpdate
	f.engine.RunPipelineStream(ctx, pipelineHolding(), domain.RiskToleranceMedium, 30, func(u StepUpdate) {
		updates = append(updates, u)
		cancel()
	})

	require.Len(t, updates, 1, "no events should follow a cancellation")
	assert.Equal(t, StepCharacterization, updates[0].StepID)
}

func TestRunPipelineStreamEmitsProgressEvents(t *testing.T) {
	f := newEngineFixture()

	var progress []*events.ScanProgressData
	f.manager.Bus().Subscribe(events.ScanProgress, func(e *events.Event) {
		if data, ok := e.GetTypedData().(*events.ScanProgressData); ok {
			progress = append(progress, data)
		}
	})

	collectStream(t, f, context.Background(), 30)

	require.Len(t, progress, 4)
	assert.Equal(t, StepCharacterization, progress[0].Step)
	assert.InDelta(t, 0.2, progress[0].Progress, 1e-9)
	assert.Equal(t, StepImpact, progress[3].Step)
	assert.InDelta(t, 0.8, progress[3].Progress, 1e-9)

	for _, p := range progress {
		assert.Equal(t, progress[0].ScanID, p.ScanID)
	}
}
