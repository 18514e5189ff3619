// Package matcher finds the registered identity closest to a query descriptor.
//
// The scan is linear over every stored descriptor. Kiosk galleries hold a
// handful of people with a few captures each, so there is no index.
package matcher

import (
	"math"

	"github.com/okian/attendance/internal/domain/model"
)

// Distance returns the Euclidean distance between a and b. It returns +Inf
// when the lengths differ so mismatched descriptors can never win a scan.
func Distance(a, b model.Descriptor) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence converts a distance into the score compared against the threshold.
func Confidence(distance float64) float64 {
	return math.Max(0, 1-distance)
}

// Match returns the identity owning the descriptor nearest to query.
//
// Identities are visited in slice order and their embeddings in insertion
// order; the best candidate only moves on a strictly smaller distance, so on
// ties the first pair encountered wins. ok is false when there are no
// candidates or the best confidence is below threshold.
func Match(query model.Descriptor, candidates []model.Identity, threshold float64) (model.MatchResult, bool) {
	best := -1
	bestDistance := math.Inf(1)

	for i := range candidates {
		for _, stored := range candidates[i].Embeddings {
			d := Distance(query, stored)
			if d < bestDistance {
				bestDistance = d
				best = i
			}
		}
	}

	if best < 0 {
		return model.MatchResult{}, false
	}

	confidence := Confidence(bestDistance)
	if confidence < threshold {
		return model.MatchResult{}, false
	}

	return model.MatchResult{
		IdentityID:  candidates[best].ID,
		DisplayName: candidates[best].DisplayName,
		Confidence:  confidence,
		Distance:    bestDistance,
	}, true
}
