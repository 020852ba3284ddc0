package store

import (
	"context"
	"sync"

	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

// MemoryStore keeps profiles in process. Natural order is first-insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*types.Profile
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: map[string]*types.Profile{}}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(_ context.Context, key string) (types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[key]
	if !ok {
		return types.Profile{}, errs.ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, key string, u types.ProfileUpdate) (types.Profile, error) {
	return s.Modify(ctx, key, func(p *types.Profile) error {
		p.Apply(u)
		return nil
	})
}

func (s *MemoryStore) Modify(_ context.Context, key string, fn func(p *types.Profile) error) (types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.profiles[key]
	next := types.NewProfile(key)
	var prior []types.RatingChange
	if ok {
		next = clone(cur)
		prior, next.RatingHistory = next.RatingHistory, nil
	}
	if err := fn(&next); err != nil {
		return types.Profile{}, err
	}
	next.Key = key
	next.RatingHistory = append(prior, next.RatingHistory...)

	if !ok {
		s.order = append(s.order, key)
	}
	s.profiles[key] = &next
	return clone(&next), nil
}

func (s *MemoryStore) AppendRatingHistory(_ context.Context, key string, entry types.RatingChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ensure(key)
	p.RatingHistory = append(p.RatingHistory, entry)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]types.Profile, error) {
	s.mu.RLock()
	all := make([]types.Profile, 0, len(s.order))
	for _, k := range s.order {
		all = append(all, clone(s.profiles[k]))
	}
	s.mu.RUnlock()
	return apply(all, q), nil
}

func (s *MemoryStore) ensure(key string) *types.Profile {
	p, ok := s.profiles[key]
	if !ok {
		np := types.NewProfile(key)
		p = &np
		s.profiles[key] = p
		s.order = append(s.order, key)
	}
	return p
}

func clone(p *types.Profile) types.Profile {
	c := *p
	if p.RatingHistory != nil {
		c.RatingHistory = append([]types.RatingChange(nil), p.RatingHistory...)
	}
	return c
}
