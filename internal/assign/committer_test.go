package assign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
)

func TestCommitter_Apply_Commits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")
	staking := f.features["Staking"]

	c := NewCommitter(f.store)
	d := model.Decision{
		FeatureID:   &staking.ID,
		FeatureName: staking.Name,
		Confidence:  0.75,
		Method:      model.MethodAI,
	}
	result, err := c.Apply(ctx, shot, d)
	require.NoError(t, err)
	assert.False(t, result.NeedsReview)
	require.NotNil(t, result.FeatureID)
	assert.Equal(t, staking.ID, *result.FeatureID)

	stored, err := f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FeatureID)
	assert.Equal(t, staking.ID, *stored.FeatureID)
	assert.InDelta(t, 0.75, stored.AssignmentConfidence, 1e-9)
	assert.Equal(t, model.MethodAI, stored.AssignmentMethod)
	assert.False(t, stored.NeedsReview)

	// committing also records the matrix relation
	matrix, err := f.store.ListMatrix(ctx)
	require.NoError(t, err)
	require.Len(t, matrix, 1)
	assert.Equal(t, staking.ID, matrix[0].FeatureID)
	assert.True(t, matrix[0].HasFeature)
	assert.Equal(t, 1, matrix[0].ScreenshotCount)
}

func TestCommitter_Apply_FlagsBelowThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")
	wallet := f.features["Wallet"]

	c := NewCommitter(f.store)
	d := model.Decision{
		FeatureID:   &wallet.ID,
		FeatureName: wallet.Name,
		Confidence:  0.55,
		Method:      model.MethodPattern,
	}
	result, err := c.Apply(ctx, shot, d)
	require.NoError(t, err)
	assert.True(t, result.NeedsReview)
	assert.Nil(t, result.FeatureID)

	stored, err := f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FeatureID)
	assert.True(t, stored.NeedsReview)
	assert.InDelta(t, 0.55, stored.AssignmentConfidence, 1e-9)
	// no feature was written, so no method may be recorded either
	assert.Empty(t, string(stored.AssignmentMethod))

	matrix, err := f.store.ListMatrix(ctx)
	require.NoError(t, err)
	assert.Empty(t, matrix)
}

func TestCommitter_Apply_FlagKeepsPriorFeature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")
	kyc := f.features["KYC"]

	c := NewCommitter(f.store)
	_, err := c.Apply(ctx, shot, model.Decision{
		FeatureID: &kyc.ID, FeatureName: kyc.Name, Confidence: 0.9, Method: model.MethodAI,
	})
	require.NoError(t, err)

	// re-analysis comes back weak; the committed feature must survive
	shot, err = f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	wallet := f.features["Wallet"]
	result, err := c.Apply(ctx, shot, model.Decision{
		FeatureID: &wallet.ID, FeatureName: wallet.Name, Confidence: 0.4, Method: model.MethodPattern,
	})
	require.NoError(t, err)
	assert.True(t, result.NeedsReview)

	stored, err := f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FeatureID)
	assert.Equal(t, kyc.ID, *stored.FeatureID)
	assert.True(t, stored.NeedsReview)
	assert.InDelta(t, 0.4, stored.AssignmentConfidence, 1e-9)
	// the weak pattern signal must not relabel how KYC was assigned
	assert.Equal(t, model.MethodAI, stored.AssignmentMethod)
}

func TestCommitter_Apply_NilFeatureAlwaysFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")

	c := NewCommitter(f.store)
	result, err := c.Apply(ctx, shot, model.Decision{
		Confidence: 0, Method: model.MethodAI, Reasoning: "no predictions available",
	})
	require.NoError(t, err)
	assert.True(t, result.NeedsReview)
	assert.Nil(t, result.FeatureID)
}

func TestCommitter_Confirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot := f.addScreenshot(t, "Binance TR/misc/shot1.png")
	trading := f.features["Trading"]

	analysis := &model.Analysis{
		ScreenshotID:      shot.ID,
		FeaturePrediction: "Wallet",
		Confidence:        0.5,
		Provider:          "anthropic",
	}
	require.NoError(t, f.store.CreateAnalysis(ctx, analysis))

	c := NewCommitter(f.store)
	require.NoError(t, c.Confirm(ctx, shot.ID, trading.ID))

	stored, err := f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FeatureID)
	assert.Equal(t, trading.ID, *stored.FeatureID)
	assert.Equal(t, 1.0, stored.AssignmentConfidence)
	assert.Equal(t, model.MethodManual, stored.AssignmentMethod)
	assert.False(t, stored.NeedsReview)
	require.NotNil(t, stored.ReviewedAt)

	// the analysis is retagged so pattern learning sees the reviewer's verdict
	latest, err := f.store.LatestAnalysis(ctx, shot.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.ManualOverride)
	assert.Equal(t, "Trading", latest.FeaturePrediction)
}
