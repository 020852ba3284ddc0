// Package leaderboard builds ranked, paginated views of the player base.
// It only reads from the profile store and never touches matchmaking queues.
package leaderboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/internal/metrics"
	"github.com/yourname/contest-matchmaker/internal/rating"
	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100

	minRating   = 800
	minContests = 1
)

type Aggregator struct {
	st  store.Store
	log *zap.Logger
	now func() time.Time
}

func NewAggregator(st store.Store, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{st: st, log: log, now: time.Now}
}

// WithClock replaces the aggregator's time source.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// GetLeaderboard ranks eligible players by rating. A limit of 0 selects the
// default page size. Ranks are offset+index+1 with ties kept in store order.
func (a *Aggregator) GetLeaderboard(ctx context.Context, tf types.Timeframe, limit, offset int) (types.LeaderboardPage, error) {
	start := time.Now()
	defer func() { metrics.LeaderboardDuration.Observe(time.Since(start).Seconds()) }()

	window, err := windowOf(tf)
	if err != nil {
		return types.LeaderboardPage{}, err
	}
	switch {
	case limit < 0:
		return types.LeaderboardPage{}, errs.Invalid("limit", "must not be negative")
	case limit == 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		return types.LeaderboardPage{}, errs.Invalid("offset", "must not be negative")
	}

	now := a.now()
	filter := store.Filter{MinContests: minContests, Rating: &store.RatingBand{Min: minRating, Max: math.MaxInt32}}
	if d := window.Duration(); d > 0 {
		filter.ActiveOrPlayedSince = now.Add(-d)
	}
	eligible, err := a.st.Query(ctx, store.Query{Filter: filter, Sort: store.SortRatingDesc})
	if err != nil {
		return types.LeaderboardPage{}, fmt.Errorf("leaderboard: %w", err)
	}

	page := types.LeaderboardPage{
		Timeframe: tf,
		Entries:   []types.LeaderboardEntry{},
		Pagination: types.Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   len(eligible),
			HasMore: offset+limit < len(eligible),
		},
		Stats: stats(eligible),
	}
	if offset >= len(eligible) {
		return page, nil
	}
	end := min(offset+limit, len(eligible))
	for i, p := range eligible[offset:end] {
		page.Entries = append(page.Entries, types.LeaderboardEntry{
			Rank:                 offset + i + 1,
			PlayerKey:            p.Key,
			DisplayName:          p.DisplayName,
			Rating:               p.Rating,
			DisplayRating:        rating.DisplayRating(p.Rating),
			Tier:                 rating.TierOf(p.Rating),
			WinRate:              rating.WinRate(p.RatingHistory),
			AveragePlacement:     rating.AveragePlacement(p.RatingHistory),
			RecentChange:         rating.RecentChange(p.RatingHistory, window, now),
			ContestsParticipated: p.ContestsParticipated,
		})
	}
	a.log.Debug("leaderboard built",
		zap.String("timeframe", string(tf)),
		zap.Int("eligible", len(eligible)),
		zap.Int("returned", len(page.Entries)))
	return page, nil
}

func windowOf(tf types.Timeframe) (rating.Window, error) {
	switch tf {
	case types.TimeframeWeek, types.TimeframeMonth, types.TimeframeAll:
		return rating.WindowFor(tf), nil
	}
	return "", errs.Invalid("timeframe", "%q is not one of week, month, all", tf)
}

func stats(eligible []types.Profile) types.LeaderboardStats {
	s := types.LeaderboardStats{
		TotalPlayers:     len(eligible),
		TierDistribution: make(map[types.Tier]int, len(types.Tiers)),
	}
	for _, t := range types.Tiers {
		s.TierDistribution[t] = 0
	}
	if len(eligible) == 0 {
		return s
	}
	sum := 0
	for _, p := range eligible {
		sum += p.Rating
		s.TierDistribution[rating.TierOf(p.Rating)]++
	}
	s.AverageRating = math.Round(float64(sum)/float64(len(eligible))*10) / 10
	return s
}
