package store

import (
	"context"
	"sort"
	"time"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

// Store is the player-profile collaborator. Get returns errs.ErrNotFound for
// unknown keys; every other failure is an *errs.StorageError.
type Store interface {
	Get(ctx context.Context, key string) (types.Profile, error)
	Upsert(ctx context.Context, key string, u types.ProfileUpdate) (types.Profile, error)
	// Modify applies fn to the current profile (a default one for unknown
	// keys) and persists the result atomically with respect to other writers.
	// fn starts with an empty RatingHistory; entries it appends are stored
	// with the profile. An error from fn aborts the write and is returned as is.
	Modify(ctx context.Context, key string, fn func(p *types.Profile) error) (types.Profile, error)
	Query(ctx context.Context, q Query) ([]types.Profile, error)
	AppendRatingHistory(ctx context.Context, key string, entry types.RatingChange) error
	Close() error
}

type SortOrder int

const (
	// SortNatural keeps the store's own stable order.
	SortNatural SortOrder = iota
	SortRatingDesc
)

type RatingBand struct {
	Min, Max int
}

// Filter selects profiles. Zero-valued fields do not constrain.
type Filter struct {
	ExcludeKey      string
	Rating          *RatingBand
	MinContests     int
	OnlineOnly      bool
	LookingForMatch bool
	PreferredMode   types.Mode
	// ActiveSince bounds presence.lastActiveAt.
	ActiveSince time.Time
	// ActiveOrPlayedSince admits a profile when either lastActiveAt or
	// lastContestAt falls at or after the instant.
	ActiveOrPlayedSince time.Time
}

type Query struct {
	Filter Filter
	Sort   SortOrder
	Limit  int // 0 = no limit
	Offset int
}

func (f Filter) Match(p types.Profile) bool {
	if f.ExcludeKey != "" && p.Key == f.ExcludeKey {
		return false
	}
	if f.Rating != nil && (p.Rating < f.Rating.Min || p.Rating > f.Rating.Max) {
		return false
	}
	if p.ContestsParticipated < f.MinContests {
		return false
	}
	if f.OnlineOnly && !p.Presence.IsOnline {
		return false
	}
	if f.LookingForMatch && !p.Presence.LookingForMatch {
		return false
	}
	if f.PreferredMode != "" && p.Presence.PreferredMode != f.PreferredMode {
		return false
	}
	if !f.ActiveSince.IsZero() && p.Presence.LastActiveAt.Before(f.ActiveSince) {
		return false
	}
	if since := f.ActiveOrPlayedSince; !since.IsZero() &&
		p.Presence.LastActiveAt.Before(since) && p.LastContestAt.Before(since) {
		return false
	}
	return true
}

// apply filters, sorts and pages candidates, which must already be in the
// store's natural order.
func apply(candidates []types.Profile, q Query) []types.Profile {
	out := make([]types.Profile, 0, len(candidates))
	for _, p := range candidates {
		if q.Filter.Match(p) {
			out = append(out, p)
		}
	}
	if q.Sort == SortRatingDesc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []types.Profile{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
