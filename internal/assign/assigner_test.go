package assign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
)

func TestAssignOne_ShortCircuitsOnStrongVision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")

	// a stored high-confidence vision analysis stands alone
	require.NoError(t, f.store.CreateAnalysis(ctx, &model.Analysis{
		ScreenshotID:      shot.ID,
		FeaturePrediction: "Staking",
		Confidence:        0.9,
		Provider:          "anthropic",
	}))

	a := NewAssigner(f.store, &fixedText{}, nil)
	result, err := a.AssignOne(ctx, shot.ID, Options{})
	require.NoError(t, err)
	assert.False(t, result.NeedsReview)
	require.NotNil(t, result.FeatureID)
	assert.Equal(t, f.features["Staking"].ID, *result.FeatureID)
	assert.Equal(t, model.MethodAI, result.Method)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
}

func TestAssignOne_KeepsExistingStrongAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trading := f.features["Trading"]
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")

	c := NewCommitter(f.store)
	require.NoError(t, c.Confirm(ctx, shot.ID, trading.ID))

	// an unforced pass with no signals must not touch the confirmation
	a := NewAssigner(f.store, &fixedText{}, nil)
	result, err := a.AssignOne(ctx, shot.ID, Options{})
	require.NoError(t, err)
	require.NotNil(t, result.FeatureID)
	assert.Equal(t, trading.ID, *result.FeatureID)
	assert.Equal(t, "Trading", result.FeatureName)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, model.MethodManual, result.Method)
	assert.False(t, result.NeedsReview)

	stored, err := f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FeatureID)
	assert.Equal(t, trading.ID, *stored.FeatureID)
	assert.Equal(t, 1.0, stored.AssignmentConfidence)
	assert.Equal(t, model.MethodManual, stored.AssignmentMethod)
	assert.False(t, stored.NeedsReview)

	// no new analysis pass ran for the settled screenshot
	latest, err := f.store.LatestAnalysis(ctx, shot.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	// forcing a re-run does re-arbitrate
	result, err = a.AssignOne(ctx, shot.ID, Options{Reanalyze: true})
	require.NoError(t, err)
	assert.True(t, result.NeedsReview)
}

func TestAssignOne_PathOnlyFlagsForReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/staking/earn-screen.png")

	a := NewAssigner(f.store, &fixedText{}, nil)
	result, err := a.AssignOne(ctx, shot.ID, Options{})
	require.NoError(t, err)

	// 0.6 path confidence is below the auto-commit line
	assert.True(t, result.NeedsReview)
	assert.Nil(t, result.FeatureID)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
	assert.Equal(t, model.MethodPath, result.Method)

	// the extraction pass was persisted even without a vision verdict
	analysis, err := f.store.LatestAnalysis(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, "ocr", analysis.Provider)
}

func TestAssignOne_NoSignalsFlagsForReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/untitled-001.png")

	a := NewAssigner(f.store, &fixedText{}, nil)
	result, err := a.AssignOne(ctx, shot.ID, Options{})
	require.NoError(t, err)
	assert.True(t, result.NeedsReview)
	assert.Nil(t, result.FeatureID)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, "no predictions available", result.Reasoning)
}

func TestAssignOne_PatternBeatsPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.features["Wallet"]

	// confirm enough wallet screenshots to push the pattern baseline
	// past the path heuristic's fixed 0.6
	for i := 0; i < 8; i++ {
		confirmed := f.addScreenshot(t, "Binance TR/confirmed/w"+string(rune('a'+i))+".png")
		require.NoError(t, f.store.CreateAnalysis(ctx, &model.Analysis{
			ScreenshotID:  confirmed.ID,
			ExtractedText: "toplam bakiye portfolio balance overview",
			Provider:      "ocr",
		}))
		require.NoError(t, f.store.UpdateAssignment(ctx, confirmed.ID, model.Decision{
			FeatureID: &wallet.ID, Confidence: 1.0, Method: model.MethodManual,
		}, false, nil))
	}

	// the new screenshot's path says Staking but its text matches the
	// learned wallet vocabulary
	shot := f.addScreenshot(t, "Binance TR/staking/unknown.png")
	a := NewAssigner(f.store, &fixedText{text: "toplam bakiye portfolio balance overview"}, nil)
	result, err := a.AssignOne(ctx, shot.ID, Options{})
	require.NoError(t, err)

	require.NotNil(t, result.FeatureID)
	assert.Equal(t, wallet.ID, *result.FeatureID)
	assert.Equal(t, model.MethodPattern, result.Method)
	assert.False(t, result.NeedsReview)
	// baseline 0.3 + 8*0.05 = 0.7, full keyword match adds the 0.2 boost
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
}

func TestAssignOne_ReanalyzeRunsExtractorsAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")

	require.NoError(t, f.store.CreateAnalysis(ctx, &model.Analysis{
		ScreenshotID:      shot.ID,
		FeaturePrediction: "Staking",
		Confidence:        0.9,
		Provider:          "anthropic",
	}))

	a := NewAssigner(f.store, &fixedText{text: "some unrelated text"}, nil)
	result, err := a.AssignOne(ctx, shot.ID, Options{Reanalyze: true})
	require.NoError(t, err)

	// the stale vision prediction is discarded along with its analysis
	assert.True(t, result.NeedsReview)
	assert.Nil(t, result.FeatureID)

	latest, err := f.store.LatestAnalysis(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "ocr", latest.Provider)
	assert.Equal(t, "some unrelated text", latest.ExtractedText)
}
