package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
)

func TestArbitrate_PicksHighestConfidence(t *testing.T) {
	d := Arbitrate([]model.Candidate{
		{FeatureID: "f1", FeatureName: "KYC", Confidence: 0.55, Method: model.MethodAI},
		{FeatureID: "f2", FeatureName: "Staking", Confidence: 0.72, Method: model.MethodPattern},
		{FeatureID: "f3", FeatureName: "Wallet", Confidence: 0.6, Method: model.MethodPath},
	})

	require.NotNil(t, d.FeatureID)
	assert.Equal(t, "f2", *d.FeatureID)
	assert.Equal(t, "Staking", d.FeatureName)
	assert.Equal(t, model.MethodPattern, d.Method)
	assert.InDelta(t, 0.72, d.Confidence, 1e-9)
}

func TestArbitrate_TieKeepsSourcePriority(t *testing.T) {
	// vision arrives first; at equal confidence it must win over path
	d := Arbitrate([]model.Candidate{
		{FeatureID: "f1", FeatureName: "Trading", Confidence: 0.6, Method: model.MethodAI},
		{FeatureID: "f2", FeatureName: "Convert", Confidence: 0.6, Method: model.MethodPath},
	})

	require.NotNil(t, d.FeatureID)
	assert.Equal(t, "f1", *d.FeatureID)
	assert.Equal(t, model.MethodAI, d.Method)
}

func TestArbitrate_DoesNotMutateInput(t *testing.T) {
	candidates := []model.Candidate{
		{FeatureID: "f1", Confidence: 0.1},
		{FeatureID: "f2", Confidence: 0.9},
	}
	Arbitrate(candidates)
	assert.Equal(t, "f1", candidates[0].FeatureID)
}

func TestArbitrate_Empty(t *testing.T) {
	d := Arbitrate(nil)
	assert.Nil(t, d.FeatureID)
	assert.Zero(t, d.Confidence)
	assert.Equal(t, model.MethodAI, d.Method)
	assert.Equal(t, "no predictions available", d.Reasoning)
}

func TestShortCircuit(t *testing.T) {
	strong := &model.Candidate{FeatureID: "f1", FeatureName: "KYC", Confidence: 0.85, Method: model.MethodAI}
	d, ok := ShortCircuit(strong)
	require.True(t, ok)
	require.NotNil(t, d.FeatureID)
	assert.Equal(t, "f1", *d.FeatureID)
	assert.InDelta(t, 0.85, d.Confidence, 1e-9)

	boundary := &model.Candidate{FeatureID: "f1", Confidence: 0.8, Method: model.MethodAI}
	_, ok = ShortCircuit(boundary)
	assert.True(t, ok)

	weak := &model.Candidate{FeatureID: "f1", Confidence: 0.79, Method: model.MethodAI}
	_, ok = ShortCircuit(weak)
	assert.False(t, ok)

	// only the vision source may short-circuit
	pattern := &model.Candidate{FeatureID: "f1", Confidence: 0.95, Method: model.MethodPattern}
	_, ok = ShortCircuit(pattern)
	assert.False(t, ok)

	_, ok = ShortCircuit(nil)
	assert.False(t, ok)
}
