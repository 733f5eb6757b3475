package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrediction(t *testing.T) {
	text := `Here is my analysis:
{"feature": "Staking", "confidence": 0.92, "detected_elements": ["APY banner", "stake button"], "is_onboarding": false, "reasoning": "staking rewards screen"}`

	pred, err := parsePrediction(text)
	require.NoError(t, err)
	assert.Equal(t, "Staking", pred.FeatureName)
	assert.InDelta(t, 0.92, pred.Confidence, 1e-9)
	assert.Equal(t, []string{"APY banner", "stake button"}, pred.DetectedElements)
	assert.False(t, pred.IsOnboarding)
	assert.Equal(t, "staking rewards screen", pred.Reasoning)
}

func TestParsePrediction_ConfidenceClamped(t *testing.T) {
	pred, err := parsePrediction(`{"feature": "KYC", "confidence": 1.7}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.Confidence)

	pred, err = parsePrediction(`{"feature": "KYC", "confidence": -0.3}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.Confidence)
}

func TestParsePrediction_NoJSON(t *testing.T) {
	_, err := parsePrediction("I cannot identify this screenshot")
	assert.Error(t, err)
}

func TestParsePrediction_MalformedJSON(t *testing.T) {
	_, err := parsePrediction(`{"feature": "KYC", "confidence": }`)
	assert.Error(t, err)
}

func TestNewClassifier_DisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewClassifier("", "claude-sonnet-4-20250514", 300))
	assert.NotNil(t, NewClassifier("sk-test", "claude-sonnet-4-20250514", 300))
}
