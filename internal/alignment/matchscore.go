// Package alignment computes political alignment vectors for businesses
// and match scores between user preferences and business alignments.
package alignment

import (
	"math"

	"votewallet/internal/types"
)

// MatchScore compares a user's alignment preferences against a business's
// alignment vector and returns a 0-100 score.
//
// Each axis the user cares about (non-zero) contributes a similarity of
// 1 - |user - business| on the 0-1 scale, weighted by how much the user
// cares. Axes the user is indifferent to are ignored entirely. Values
// above 100 are treated as 100. A user with all-zero preferences scores 0
// against everything.
func MatchScore(user, business types.AlignmentVector) int {
	var weighted, totalWeight float64
	for _, axis := range types.AxisNames() {
		u := user.Axis(axis)
		if u == 0 {
			continue
		}
		b := business.Axis(axis)
		similarity := 1 - math.Abs(math.Min(u, 100)/100-math.Min(b, 100)/100)
		weighted += similarity * u
		totalWeight += u
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(100 * weighted / totalWeight))
}

// clampAxis bounds an axis magnitude to [0,100].
func clampAxis(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
