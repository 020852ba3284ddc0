package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/yourname/contest-matchmaker/internal/presence"
	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

const (
	maxSuggested = 10
	maxAvailable = 50
)

// FindOpponents is a read-only compatibility search. It never touches the queues.
func (m *Matchmaker) FindOpponents(ctx context.Context, key string, mode types.Mode) (types.OpponentSearch, error) {
	if key == "" {
		return types.OpponentSearch{}, errs.Invalid("player_key", "missing")
	}
	cfg, err := m.Mode(mode)
	if err != nil {
		return types.OpponentSearch{}, err
	}
	p, err := m.profileOrDefault(ctx, key)
	if err != nil {
		return types.OpponentSearch{}, fmt.Errorf("find opponents: %w", err)
	}

	rng := cfg.RatingRange
	if p.Preferences.RatingRange > 0 {
		rng = p.Preferences.RatingRange
	}
	now := m.presence.Now()

	matching, err := m.st.Query(ctx, store.Query{
		Filter: store.Filter{
			ExcludeKey:      key,
			Rating:          band(p.Rating, rng),
			OnlineOnly:      true,
			LookingForMatch: true,
			PreferredMode:   mode,
			ActiveSince:     now.Add(-presence.AvailableWindow),
		},
		Sort: store.SortRatingDesc,
	})
	if err != nil {
		return types.OpponentSearch{}, fmt.Errorf("find opponents: %w", err)
	}

	wide := int(math.Round(float64(rng) * 1.5))
	candidates, err := m.st.Query(ctx, store.Query{
		Filter: store.Filter{
			ExcludeKey:  key,
			Rating:      band(p.Rating, wide),
			ActiveSince: now.Add(-presence.SuggestedWindow),
		},
		Sort: store.SortRatingDesc,
	})
	if err != nil {
		return types.OpponentSearch{}, fmt.Errorf("find opponents: %w", err)
	}

	seen := make(map[string]bool, len(matching))
	for _, u := range matching {
		seen[u.Key] = true
	}
	suggested := make([]types.Profile, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.Key] {
			suggested = append(suggested, c)
		}
	}
	sort.SliceStable(suggested, func(i, j int) bool {
		return distance(suggested[i].Rating, p.Rating) < distance(suggested[j].Rating, p.Rating)
	})
	if len(suggested) > maxSuggested {
		suggested = suggested[:maxSuggested]
	}

	return types.OpponentSearch{
		MatchingUsers:  matching,
		SuggestedUsers: suggested,
		UserRating:     p.Rating,
		Config:         cfg,
	}, nil
}

// ListAvailable returns other players online and looking for a match,
// highest rated first.
func (m *Matchmaker) ListAvailable(ctx context.Context, key string) ([]types.Profile, error) {
	users, err := m.st.Query(ctx, store.Query{
		Filter: store.Filter{
			ExcludeKey:      key,
			OnlineOnly:      true,
			LookingForMatch: true,
			ActiveSince:     m.presence.Now().Add(-presence.AvailableWindow),
		},
		Sort:  store.SortRatingDesc,
		Limit: maxAvailable,
	})
	if err != nil {
		return nil, fmt.Errorf("list available: %w", err)
	}
	return users, nil
}

func (m *Matchmaker) profileOrDefault(ctx context.Context, key string) (types.Profile, error) {
	p, err := m.st.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		return types.NewProfile(key), nil
	}
	return p, err
}

func band(center, halfWidth int) *store.RatingBand {
	return &store.RatingBand{Min: center - halfWidth, Max: center + halfWidth}
}

func distance(a, b int) int {
	if a < b {
		return b - a
	}
	return a - b
}
