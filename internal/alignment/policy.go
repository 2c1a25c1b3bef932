package alignment

import (
	"context"
	"math"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

// AggregationPolicy turns a business's political activity history into an
// alignment vector plus an overall confidence in [0,1].
type AggregationPolicy interface {
	Name() string
	Aggregate(ctx context.Context, activities []types.PoliticalActivity) (types.AlignmentVector, float64, error)
}

// KeywordPolicy is the default aggregation: each activity pushes its axis
// by an amount scaled by the activity's confidence, with monetary
// activities weighted by order of magnitude. Negative impact pushes the
// axis down instead of up. Axis totals clamp to [0,100].
type KeywordPolicy struct{}

func NewKeywordPolicy() *KeywordPolicy { return &KeywordPolicy{} }

func (p *KeywordPolicy) Name() string { return "keyword" }

// baseStrength is the axis contribution of a full-confidence activity
// before any monetary weighting.
const baseStrength = 20.0

func (p *KeywordPolicy) Aggregate(ctx context.Context, activities []types.PoliticalActivity) (types.AlignmentVector, float64, error) {
	var vector types.AlignmentVector
	var confidenceSum float64
	counted := 0

	for _, act := range activities {
		if act.Axis == "" || act.Impact == types.ImpactNeutral {
			continue
		}

		strength := baseStrength * act.Confidence
		if act.Amount > 0 {
			// A $100k donation says more than a $50 one, but not a
			// thousand times more.
			strength *= math.Log10(act.Amount + 1)
		}
		if act.Impact == types.ImpactNegative {
			strength = -strength
		}

		vector.SetAxis(act.Axis, clampAxis(vector.Axis(act.Axis)+strength))
		confidenceSum += act.Confidence
		counted++
	}

	confidence := 0.0
	if counted > 0 {
		confidence = confidenceSum / float64(counted)
	}

	logging.AlignmentDebug("keyword policy: %d of %d activities counted, confidence %.2f",
		counted, len(activities), confidence)
	return vector, confidence, nil
}
