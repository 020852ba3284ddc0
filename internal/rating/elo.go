package rating

import (
	"math"
	"time"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

// ExpectedScore is the Elo probability that a beats b.
func ExpectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// KFactor shrinks as a player accumulates contests:
// provisional (<10) 40, intermediate (<20) 32, established 24.
func KFactor(contests int) float64 {
	switch {
	case contests < 10:
		return 40
	case contests < 20:
		return 32
	}
	return 24
}

// PlacementDeltas computes a rating change for every participant of a
// multi-player contest. Each player is scored pairwise against every other
// (better placement 1, tie 0.5, worse 0) and the summed surprise is scaled
// by K/(n-1). All slices are indexed by participant and must share a length.
func PlacementDeltas(ratings, placements, contests []int) []int {
	n := len(ratings)
	deltas := make([]int, n)
	if n < 2 {
		return deltas
	}
	for i := 0; i < n; i++ {
		var actual, expected float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			switch {
			case placements[i] < placements[j]:
				actual += 1
			case placements[i] == placements[j]:
				actual += 0.5
			}
			expected += ExpectedScore(ratings[i], ratings[j])
		}
		k := KFactor(contests[i])
		deltas[i] = int(math.Round(k * (actual - expected) / float64(n-1)))
	}
	return deltas
}

// NewEntry builds the history entry for moving a player from old to updated.
func NewEntry(old, updated, placement int, mode types.Mode, at time.Time) types.RatingChange {
	return types.RatingChange{
		Timestamp:    at,
		OldRating:    old,
		NewRating:    updated,
		RatingChange: updated - old,
		Placement:    placement,
		Mode:         mode,
	}
}
