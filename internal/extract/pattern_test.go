package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
)

type stubTrainingSource struct {
	examples []model.TrainingExample
	err      error
}

func (s *stubTrainingSource) TrainingExamples(ctx context.Context, competitorID string) ([]model.TrainingExample, error) {
	return s.examples, s.err
}

func TestLearnPatterns_BaselineConfidence(t *testing.T) {
	src := &stubTrainingSource{examples: []model.TrainingExample{
		{FeatureID: "f1", FeatureName: "Staking", ExtractedText: "stake your assets earn rewards"},
		{FeatureID: "f1", FeatureName: "Staking", ExtractedText: "flexible staking terms available"},
	}}

	cp, err := LearnPatterns(context.Background(), src, "comp-1")
	require.NoError(t, err)
	require.Len(t, cp.Patterns, 1)

	p := cp.Patterns[0]
	assert.Equal(t, "Staking", p.FeatureName)
	assert.Equal(t, 2, p.SampleCount)
	// 0.3 base + 2 samples * 0.05
	assert.InDelta(t, 0.4, p.Confidence, 1e-9)
}

func TestLearnPatterns_BaselineCap(t *testing.T) {
	var examples []model.TrainingExample
	for i := 0; i < 20; i++ {
		examples = append(examples, model.TrainingExample{
			FeatureID: "f1", FeatureName: "Trading", ExtractedText: "limit order book trading",
		})
	}
	cp, err := LearnPatterns(context.Background(), &stubTrainingSource{examples: examples}, "comp-1")
	require.NoError(t, err)
	require.Len(t, cp.Patterns, 1)
	assert.InDelta(t, 0.8, cp.Patterns[0].Confidence, 1e-9)
}

func TestLearnPatterns_KeywordRules(t *testing.T) {
	src := &stubTrainingSource{examples: []model.TrainingExample{
		{FeatureID: "f1", FeatureName: "KYC", ExtractedText: "Tap ID to verify your IDENTITY now ok"},
	}}
	cp, err := LearnPatterns(context.Background(), src, "comp-1")
	require.NoError(t, err)
	require.Len(t, cp.Patterns, 1)

	// words shorter than four runes are dropped, the rest lowercased
	assert.Equal(t, []string{"verify", "your", "identity"}, cp.Patterns[0].Keywords)
}

func TestLearnPatterns_KeywordLimitPerExample(t *testing.T) {
	words := make([]string, 15)
	for i := range words {
		words[i] = string(rune('a'+i)) + "word" // aword, bword, ...
	}
	src := &stubTrainingSource{examples: []model.TrainingExample{
		{FeatureID: "f1", FeatureName: "Wallet", ExtractedText: strings.Join(words, " ")},
	}}
	cp, err := LearnPatterns(context.Background(), src, "comp-1")
	require.NoError(t, err)
	require.Len(t, cp.Patterns, 1)
	assert.Len(t, cp.Patterns[0].Keywords, 10)
}

func TestLearnPatterns_Empty(t *testing.T) {
	cp, err := LearnPatterns(context.Background(), &stubTrainingSource{}, "comp-1")
	require.NoError(t, err)
	assert.Empty(t, cp.Patterns)
}

func TestPatternMatch_ConfidenceBoost(t *testing.T) {
	cp := &CompetitorPatterns{
		CompetitorID: "comp-1",
		Patterns: []Pattern{
			{FeatureID: "f1", FeatureName: "Staking", Keywords: []string{"stake", "earn", "rewards", "flexible"}, Confidence: 0.4},
		},
	}

	matches := cp.Match("Stake now and earn daily")
	require.Len(t, matches, 1)
	assert.Equal(t, "f1", matches[0].FeatureID)
	assert.Equal(t, 2, matches[0].MatchCount)
	// baseline 0.4 + 2/4 * 0.2 boost
	assert.InDelta(t, 0.5, matches[0].Confidence, 1e-9)
}

func TestPatternMatch_ConfidenceCap(t *testing.T) {
	cp := &CompetitorPatterns{
		Patterns: []Pattern{
			{FeatureID: "f1", FeatureName: "Trading", Keywords: []string{"trade"}, Confidence: 0.8},
		},
	}
	matches := cp.Match("trade crypto")
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.85, matches[0].Confidence, 1e-9)
}

func TestPatternMatch_NoHitsOmitted(t *testing.T) {
	cp := &CompetitorPatterns{
		Patterns: []Pattern{
			{FeatureID: "f1", FeatureName: "KYC", Keywords: []string{"identity"}, Confidence: 0.35},
			{FeatureID: "f2", FeatureName: "Wallet", Keywords: []string{"balance"}, Confidence: 0.35},
		},
	}
	matches := cp.Match("your balance is 100 TRY")
	require.Len(t, matches, 1)
	assert.Equal(t, "f2", matches[0].FeatureID)
}

func TestPatternMatch_NilAndEmpty(t *testing.T) {
	var cp *CompetitorPatterns
	assert.Nil(t, cp.Match("anything"))

	cp = &CompetitorPatterns{Patterns: []Pattern{{Keywords: []string{"kyc"}}}}
	assert.Nil(t, cp.Match(""))
}
