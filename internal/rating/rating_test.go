package rating

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		rating int
		want   types.Tier
	}{
		{0, types.TierBronze},
		{899, types.TierBronze},
		{900, types.TierSilver},
		{1199, types.TierSilver},
		{1200, types.TierGold},
		{1499, types.TierGold},
		{1500, types.TierPlatinum},
		{1799, types.TierPlatinum},
		{1800, types.TierDiamond},
		{2099, types.TierDiamond},
		{2100, types.TierMaster},
		{2399, types.TierMaster},
		{2400, types.TierGrandmaster},
		{3500, types.TierGrandmaster},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierOf(tt.rating), "rating %d", tt.rating)
	}
}

func TestTierOfIsMonotonic(t *testing.T) {
	prev := TierOf(-100).Rank()
	for r := -99; r <= 3200; r++ {
		cur := TierOf(r).Rank()
		if cur < prev {
			t.Fatalf("TierOf(%d) ranks below TierOf(%d)", r, r-1)
		}
		prev = cur
	}
}

func TestDisplayRating(t *testing.T) {
	assert.Equal(t, 2999, DisplayRating(2999))
	assert.Equal(t, 3000, DisplayRating(3000))
	assert.Equal(t, 3000, DisplayRating(3412))
}

func TestRecentChange(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	t0 := now.Add(-48 * time.Hour)
	t1 := now.Add(-24 * time.Hour)
	history := []types.RatingChange{
		{Timestamp: t0, OldRating: 1200, NewRating: 1220, RatingChange: 20},
		{Timestamp: t1, OldRating: 1220, NewRating: 1210, RatingChange: -10},
	}

	assert.Equal(t, -10, RecentChange(history, WindowAllTime, now))
	assert.Equal(t, 10, RecentChange(history, WindowWeek, now))
	assert.Equal(t, 10, RecentChange(history, WindowMonth, now))
	assert.Equal(t, 0, RecentChange(nil, WindowAllTime, now))

	old := []types.RatingChange{
		{Timestamp: now.AddDate(0, 0, -20), OldRating: 1100, NewRating: 1150, RatingChange: 50},
		{Timestamp: now.AddDate(0, 0, -2), OldRating: 1150, NewRating: 1140, RatingChange: -10},
		{Timestamp: now.AddDate(0, 0, -1), OldRating: 1140, NewRating: 1170, RatingChange: 30},
	}
	assert.Equal(t, 20, RecentChange(old, WindowWeek, now))
	assert.Equal(t, 70, RecentChange(old, WindowMonth, now))

	stale := []types.RatingChange{{Timestamp: now.AddDate(0, -2, 0), OldRating: 1000, NewRating: 1100, RatingChange: 100}}
	assert.Equal(t, 0, RecentChange(stale, WindowMonth, now))
	assert.Equal(t, 100, RecentChange(stale, WindowAllTime, now))
}

func TestWinRateAndAveragePlacement(t *testing.T) {
	assert.Equal(t, 0, WinRate(nil))
	assert.Equal(t, 0.0, AveragePlacement(nil))

	history := []types.RatingChange{{Placement: 1}, {Placement: 2}, {Placement: 1}}
	assert.Equal(t, 67, WinRate(history))
	assert.Equal(t, 1.3, AveragePlacement(history))

	assert.Equal(t, 2.5, AveragePlacement([]types.RatingChange{{Placement: 2}, {Placement: 3}}))
}

func TestWindowFor(t *testing.T) {
	assert.Equal(t, WindowWeek, WindowFor(types.TimeframeWeek))
	assert.Equal(t, WindowMonth, WindowFor(types.TimeframeMonth))
	assert.Equal(t, WindowAllTime, WindowFor(types.TimeframeAll))
}
