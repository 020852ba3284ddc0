package match

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

type profileSeed struct {
	key     string
	rating  int
	online  bool
	looking bool
	mode    types.Mode
	idle    time.Duration
}

func (f *fixture) seedProfiles(t *testing.T, seeds []profileSeed) {
	t.Helper()
	for _, s := range seeds {
		active := f.clock.Now().Add(-s.idle)
		mode := s.mode
		_, err := f.st.Upsert(context.Background(), s.key, types.ProfileUpdate{
			Rating:          types.Ptr(s.rating),
			IsOnline:        types.Ptr(s.online),
			LookingForMatch: types.Ptr(s.looking),
			PreferredMode:   &mode,
			LastActiveAt:    &active,
		})
		require.NoError(t, err)
	}
}

func profileKeys(ps []types.Profile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Key
	}
	return out
}

func TestFindOpponents(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.seedProfiles(t, []profileSeed{
		{"me", 1400, true, true, types.ModeDuel, 0},
		{"close", 1450, true, true, types.ModeDuel, time.Minute},
		{"edge", 1600, true, true, types.ModeDuel, 2 * time.Minute},
		{"wrong-mode", 1410, true, true, types.ModeRush, 0},
		{"not-looking", 1390, true, false, types.ModeDuel, 0},
		{"stale", 1405, true, true, types.ModeDuel, 20 * time.Minute},
		{"wide", 1690, false, false, "", 10 * time.Minute},
		{"too-wide", 1720, true, true, types.ModeDuel, 0},
		{"gone", 1400, true, true, types.ModeDuel, 45 * time.Minute},
	})

	res, err := f.mm.FindOpponents(ctx, "me", types.ModeDuel)
	require.NoError(t, err)
	assert.Equal(t, 1400, res.UserRating)
	assert.Equal(t, 2, res.Config.Players)
	assert.Equal(t, []string{"edge", "close"}, profileKeys(res.MatchingUsers))
	// closest first, matching users excluded
	assert.Equal(t, []string{"stale", "wrong-mode", "not-looking", "wide"}, profileKeys(res.SuggestedUsers))

	// read-only
	assert.Zero(t, f.mm.QueueLength(types.ModeDuel))
}

func TestFindOpponents_PreferenceOverridesRange(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.seedProfiles(t, []profileSeed{
		{"me", 1400, true, true, types.ModeDuel, 0},
		{"near", 1440, true, true, types.ModeDuel, 0},
		{"far", 1550, true, true, types.ModeDuel, 0},
	})
	_, err := f.st.Upsert(ctx, "me", types.ProfileUpdate{Preferences: &types.Preferences{RatingRange: 50}})
	require.NoError(t, err)

	res, err := f.mm.FindOpponents(ctx, "me", types.ModeDuel)
	require.NoError(t, err)
	assert.Equal(t, []string{"near"}, profileKeys(res.MatchingUsers))
	assert.Empty(t, res.SuggestedUsers)
}

func TestFindOpponents_UnknownPlayerAndMode(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	res, err := f.mm.FindOpponents(ctx, "new", types.ModeRush)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultRating, res.UserRating)
	assert.Empty(t, res.MatchingUsers)

	_, err = f.mm.FindOpponents(ctx, "new", types.Mode("ffa"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestFindOpponents_SuggestionsCapped(t *testing.T) {
	f := newFixture(t, Options{})
	var seeds []profileSeed
	for i := 0; i < 25; i++ {
		seeds = append(seeds, profileSeed{fmt.Sprintf("s%02d", i), 1200 + i, false, false, "", time.Minute})
	}
	f.seedProfiles(t, seeds)

	res, err := f.mm.FindOpponents(context.Background(), "me", types.ModeDuel)
	require.NoError(t, err)
	assert.Len(t, res.SuggestedUsers, maxSuggested)
	assert.Equal(t, "s00", res.SuggestedUsers[0].Key)
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t, Options{})
	var seeds []profileSeed
	for i := 0; i < 60; i++ {
		seeds = append(seeds, profileSeed{fmt.Sprintf("u%02d", i), 1000 + 10*i, true, true, types.ModeRush, time.Minute})
	}
	seeds = append(seeds,
		profileSeed{"offline", 3000, false, true, types.ModeRush, 0},
		profileSeed{"idle", 3000, true, true, types.ModeRush, 16 * time.Minute},
		profileSeed{"browsing", 3000, true, false, types.ModeRush, 0},
	)
	f.seedProfiles(t, seeds)

	users, err := f.mm.ListAvailable(context.Background(), "u59")
	require.NoError(t, err)
	require.Len(t, users, maxAvailable)
	assert.Equal(t, "u58", users[0].Key)
	for i := 1; i < len(users); i++ {
		assert.GreaterOrEqual(t, users[i-1].Rating, users[i].Rating)
	}
	assert.NotContains(t, profileKeys(users), "u59")
}

func TestBand(t *testing.T) {
	assert.Equal(t, &store.RatingBand{Min: 1100, Max: 1500}, band(1300, 200))
}
