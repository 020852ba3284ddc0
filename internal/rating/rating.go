// Package rating holds the pure rating computations: tiers, derived
// statistics over a rating history, and Elo updates for finished contests.
package rating

import (
	"math"
	"time"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

// MaxDisplayRating caps ratings shown on leaderboards. Stored ratings are never clamped.
const MaxDisplayRating = 3000

type Window string

const (
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowAllTime Window = "allTime"
)

// Duration of the trailing window; zero means unbounded.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// WindowFor maps a leaderboard timeframe onto a history window.
func WindowFor(tf types.Timeframe) Window {
	switch tf {
	case types.TimeframeWeek:
		return WindowWeek
	case types.TimeframeMonth:
		return WindowMonth
	}
	return WindowAllTime
}

var tierFloors = []struct {
	floor int
	tier  types.Tier
}{
	{2400, types.TierGrandmaster},
	{2100, types.TierMaster},
	{1800, types.TierDiamond},
	{1500, types.TierPlatinum},
	{1200, types.TierGold},
	{900, types.TierSilver},
}

func TierOf(r int) types.Tier {
	for _, t := range tierFloors {
		if r >= t.floor {
			return t.tier
		}
	}
	return types.TierBronze
}

func DisplayRating(r int) int {
	if r > MaxDisplayRating {
		return MaxDisplayRating
	}
	return r
}

// RecentChange reports the rating movement inside the window ending at now.
// Week and month report net movement across the window; allTime reports the
// last recorded change.
func RecentChange(history []types.RatingChange, w Window, now time.Time) int {
	var in []types.RatingChange
	if d := w.Duration(); d > 0 {
		since := now.Add(-d)
		for _, h := range history {
			if !h.Timestamp.Before(since) {
				in = append(in, h)
			}
		}
	} else {
		in = history
	}
	if len(in) == 0 {
		return 0
	}
	last := in[len(in)-1]
	if w.Duration() == 0 {
		return last.RatingChange
	}
	return last.NewRating - in[0].OldRating
}

// WinRate is the rounded percentage of first placements.
func WinRate(history []types.RatingChange) int {
	if len(history) == 0 {
		return 0
	}
	wins := 0
	for _, h := range history {
		if h.Placement == 1 {
			wins++
		}
	}
	return int(math.Round(100 * float64(wins) / float64(len(history))))
}

func AveragePlacement(history []types.RatingChange) float64 {
	if len(history) == 0 {
		return 0
	}
	sum := 0
	for _, h := range history {
		sum += h.Placement
	}
	return math.Round(float64(sum)/float64(len(history))*10) / 10
}
