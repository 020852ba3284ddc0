package presence

import (
	"context"
	"errors"
	"time"

	"github.com/yourname/contest-matchmaker/internal/rating"
	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

// Freshness windows used when selecting profiles for matching and display.
const (
	AvailableWindow = 15 * time.Minute
	SuggestedWindow = 30 * time.Minute
	streakAtRisk    = 24 * time.Hour
)

type Tracker struct {
	st  store.Store
	now func() time.Time
}

func NewTracker(st store.Store) *Tracker {
	return &Tracker{st: st, now: time.Now}
}

// WithClock replaces the tracker's time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Now() time.Time { return t.now() }

// MarkActive merges u into the player's profile and stamps lastActiveAt.
func (t *Tracker) MarkActive(ctx context.Context, key string, u types.ProfileUpdate) (types.Profile, error) {
	now := t.now()
	u.LastActiveAt = &now
	return t.st.Upsert(ctx, key, u)
}

func (t *Tracker) IsFresh(p types.Profile, window time.Duration) bool {
	return t.now().Sub(p.Presence.LastActiveAt) <= window
}

// StreakStatus classifies a streak. Inactivity beyond a day outranks a zero streak.
func StreakStatus(streak int, lastActive, now time.Time) types.StreakStatus {
	if now.Sub(lastActive) > streakAtRisk {
		return types.StreakAtRisk
	}
	if streak == 0 {
		return types.StreakBroken
	}
	return types.StreakActive
}

// Summary builds the activity view for a player. Unknown players get the
// defaults of a fresh profile.
func (t *Tracker) Summary(ctx context.Context, key string) (types.ActivitySummary, error) {
	p, err := t.st.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		p = types.NewProfile(key)
	} else if err != nil {
		return types.ActivitySummary{}, err
	}
	now := t.now()
	return types.ActivitySummary{
		PlayerKey:            key,
		Rating:               p.Rating,
		Tier:                 rating.TierOf(p.Rating),
		CurrentStreak:        p.CurrentStreak,
		StreakStatus:         StreakStatus(p.CurrentStreak, p.Presence.LastActiveAt, now),
		WinRate:              rating.WinRate(p.RatingHistory),
		AveragePlacement:     rating.AveragePlacement(p.RatingHistory),
		WeekChange:           rating.RecentChange(p.RatingHistory, rating.WindowWeek, now),
		MonthChange:          rating.RecentChange(p.RatingHistory, rating.WindowMonth, now),
		ContestsParticipated: p.ContestsParticipated,
		IsOnline:             p.Presence.IsOnline && t.IsFresh(p, AvailableWindow),
	}, nil
}
