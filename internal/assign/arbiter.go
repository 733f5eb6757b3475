// Package assign arbitrates multi-signal feature predictions into a
// single decision per screenshot and commits or flags the outcome.
package assign

import (
	"sort"

	"github.com/asimorth/competitor-lens/internal/model"
)

const (
	// AutoCommitThreshold is the minimum confidence to write a feature
	// assignment without human review.
	AutoCommitThreshold = 0.70

	// ShortCircuitThreshold lets a strong vision verdict skip the
	// remaining signal sources.
	ShortCircuitThreshold = 0.8
)

// Arbitrate reduces candidates to one decision. Candidates arrive in
// source priority order (vision, pattern, path); the stable sort keeps
// that order among equal confidences.
func Arbitrate(candidates []model.Candidate) model.Decision {
	if len(candidates) == 0 {
		return model.Decision{
			Method:    model.MethodAI,
			Reasoning: "no predictions available",
		}
	}

	sorted := make([]model.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	best := sorted[0]
	fid := best.FeatureID
	return model.Decision{
		FeatureID:   &fid,
		FeatureName: best.FeatureName,
		Confidence:  best.Confidence,
		Method:      best.Method,
		Reasoning:   best.Reasoning,
	}
}

// ShortCircuit returns a decision immediately when the vision signal is
// strong enough to stand alone. Returns false when full arbitration is
// still required.
func ShortCircuit(c *model.Candidate) (model.Decision, bool) {
	if c == nil || c.Method != model.MethodAI || c.Confidence < ShortCircuitThreshold {
		return model.Decision{}, false
	}
	fid := c.FeatureID
	return model.Decision{
		FeatureID:   &fid,
		FeatureName: c.FeatureName,
		Confidence:  c.Confidence,
		Method:      c.Method,
		Reasoning:   c.Reasoning,
	}, true
}
