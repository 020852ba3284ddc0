package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/internal/metrics"
	"github.com/yourname/contest-matchmaker/internal/rating"
	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

// Recorder applies finished contests to player ratings. Ratings only ever
// change through here.
type Recorder struct {
	st    store.Store
	modes map[types.Mode]types.ModeConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewRecorder(st store.Store, modes map[types.Mode]types.ModeConfig, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{st: st, modes: modes, log: log, now: time.Now}
}

// WithClock replaces the recorder's time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record rates every standing against the others, appends one history entry
// per player and updates rating, contest count and day streak. The returned
// entries follow the order of standings.
//
// Deltas are computed from the ratings read up front; each player's write
// then applies its delta to whatever rating is current, so concurrent
// contests for the same player all land and the history chain stays intact.
func (r *Recorder) Record(ctx context.Context, res types.ContestResult) ([]types.RatingChange, error) {
	if err := r.validate(res); err != nil {
		return nil, err
	}

	n := len(res.Standings)
	ratings := make([]int, n)
	placements := make([]int, n)
	contests := make([]int, n)
	for i, s := range res.Standings {
		p, err := r.st.Get(ctx, s.PlayerKey)
		if errors.Is(err, errs.ErrNotFound) {
			p = types.NewProfile(s.PlayerKey)
		} else if err != nil {
			return nil, fmt.Errorf("record contest: %w", err)
		}
		ratings[i] = p.Rating
		placements[i] = s.Placement
		contests[i] = p.ContestsParticipated
	}

	now := r.now()
	deltas := rating.PlacementDeltas(ratings, placements, contests)
	entries := make([]types.RatingChange, n)
	for i, s := range res.Standings {
		_, err := r.st.Modify(ctx, s.PlayerKey, func(p *types.Profile) error {
			entries[i] = rating.NewEntry(p.Rating, p.Rating+deltas[i], placements[i], res.Mode, now)
			p.RatingHistory = append(p.RatingHistory, entries[i])
			p.Rating = entries[i].NewRating
			p.ContestsParticipated++
			p.CurrentStreak = NextStreak(p.CurrentStreak, p.LastContestAt, now)
			p.LastContestAt = now
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("record contest: %w", err)
		}
	}

	metrics.ContestsRecorded.WithLabelValues(string(res.Mode)).Inc()
	r.log.Info("contest recorded",
		zap.String("mode", string(res.Mode)),
		zap.Int("players", n),
		zap.Ints("deltas", deltas))
	return entries, nil
}

func (r *Recorder) validate(res types.ContestResult) error {
	if _, ok := r.modes[res.Mode]; !ok {
		return &errs.InvalidModeError{Mode: string(res.Mode)}
	}
	if len(res.Standings) < 2 {
		return errs.Invalid("standings", "need at least two players")
	}
	seen := make(map[string]bool, len(res.Standings))
	for _, s := range res.Standings {
		if s.PlayerKey == "" {
			return errs.Invalid("standings.player_key", "missing")
		}
		if seen[s.PlayerKey] {
			return errs.Invalid("standings.player_key", "%s listed twice", s.PlayerKey)
		}
		seen[s.PlayerKey] = true
		if s.Placement < 1 || s.Placement > len(res.Standings) {
			return errs.Invalid("standings.placement", "%d out of range for %s", s.Placement, s.PlayerKey)
		}
	}
	return nil
}

// NextStreak counts consecutive UTC days with at least one contest.
func NextStreak(streak int, last, now time.Time) int {
	if last.IsZero() {
		return 1
	}
	ld := last.UTC().Truncate(24 * time.Hour)
	nd := now.UTC().Truncate(24 * time.Hour)
	switch nd.Sub(ld) {
	case 0:
		return max(streak, 1)
	case 24 * time.Hour:
		return streak + 1
	}
	return 1
}
