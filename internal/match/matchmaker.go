package match

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/internal/metrics"
	"github.com/yourname/contest-matchmaker/internal/presence"
	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

// Matches are drained strictly first-in first-out: once a mode's queue holds
// enough entries the oldest joiners are grouped regardless of rating. Nobody
// is ever skipped, but matches are not rating balanced. Rating ranges only
// apply to FindOpponents.

const (
	waitPerPosition = 10 // seconds
	maxRatingRange  = 1000
	maxPrefLength   = 32
)

// Notifier receives every formed match. Delivery is fire-and-forget.
type Notifier interface {
	Notify(m types.Match)
}

type Options struct {
	Modes map[types.Mode]types.ModeConfig
	// IdleTimeout evicts entries queued longer than this. Zero disables the sweep.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Logger        *zap.Logger
}

type Matchmaker struct {
	st       store.Store
	presence *presence.Tracker
	notifier Notifier
	log      *zap.Logger

	modes  map[types.Mode]types.ModeConfig
	queues map[types.Mode]*queue

	idleTimeout   time.Duration
	sweepInterval time.Duration

	// member maps a player key to the one mode it is queued in, stamped with
	// the join that put it there. joins holds each player's latest join stamp.
	// Lock order: queue.mu before memberMu.
	memberMu sync.Mutex
	member   map[string]seat
	joins    map[string]uint64
	joinSeq  uint64
}

type seat struct {
	mode  types.Mode
	stamp uint64
}

// departure is a player leaving a queue through a match or an eviction.
type departure struct {
	key   string
	stamp uint64
}

type queue struct {
	mu      sync.Mutex
	entries []types.QueueEntry
}

func NewMatchmaker(st store.Store, tr *presence.Tracker, n Notifier, opts Options) *Matchmaker {
	if opts.Modes == nil {
		opts.Modes = types.DefaultModes()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	m := &Matchmaker{
		st:            st,
		presence:      tr,
		notifier:      n,
		log:           opts.Logger,
		modes:         make(map[types.Mode]types.ModeConfig, len(opts.Modes)),
		queues:        make(map[types.Mode]*queue, len(opts.Modes)),
		idleTimeout:   opts.IdleTimeout,
		sweepInterval: opts.SweepInterval,
		member:        map[string]seat{},
		joins:         map[string]uint64{},
	}
	for mode, cfg := range opts.Modes {
		m.modes[mode] = cfg
		m.queues[mode] = &queue{}
	}
	return m
}

// Mode returns the configuration of a known mode.
func (m *Matchmaker) Mode(mode types.Mode) (types.ModeConfig, error) {
	cfg, ok := m.modes[mode]
	if !ok {
		return types.ModeConfig{}, &errs.InvalidModeError{Mode: string(mode)}
	}
	return cfg, nil
}

// JoinQueue queues the player for mode, moving them out of any other queue,
// and immediately drains the mode. The result lists every match formed by
// this call; the caller's position is 0 when they were matched.
func (m *Matchmaker) JoinQueue(ctx context.Context, key string, mode types.Mode, prefs types.Preferences) (types.JoinResult, error) {
	if key == "" {
		return types.JoinResult{}, errs.Invalid("player_key", "missing")
	}
	cfg, err := m.Mode(mode)
	if err != nil {
		return types.JoinResult{}, err
	}
	if err := validatePreferences(prefs); err != nil {
		return types.JoinResult{}, err
	}

	// stamped before the flag is raised so a pending clear from an earlier
	// match sees this join and backs off
	stamp := m.stampJoin(key)
	p, err := m.presence.MarkActive(ctx, key, types.ProfileUpdate{
		IsOnline:        types.Ptr(true),
		LookingForMatch: types.Ptr(true),
		PreferredMode:   &mode,
	})
	if err != nil {
		return types.JoinResult{}, fmt.Errorf("join queue: %w", err)
	}

	entry := types.QueueEntry{
		PlayerKey:     key,
		DisplayRating: p.Rating,
		JoinedAt:      m.presence.Now(),
		Preferences:   prefs,
	}
	matches, left, pos := m.enqueue(mode, cfg, entry, stamp)
	metrics.JoinsTotal.WithLabelValues(string(mode)).Inc()
	m.emit(ctx, matches, left)

	res := types.JoinResult{QueuePosition: pos, Matches: matches}
	if res.Matches == nil {
		res.Matches = []types.Match{}
	}
	if pos > 0 {
		res.EstimatedWaitSeconds = max(cfg.BaseWaitSeconds(), pos*waitPerPosition)
	}
	return res, nil
}

// LeaveQueue removes the player from whatever queue holds them and clears
// their looking-for-match flag. Unknown players are a no-op.
func (m *Matchmaker) LeaveQueue(ctx context.Context, key string) error {
	if key == "" {
		return errs.Invalid("player_key", "missing")
	}
	if mode, ok := m.membership(key); ok {
		m.remove(mode, key)
	}
	if _, err := m.st.Get(ctx, key); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("leave queue: %w", err)
	}
	if _, err := m.presence.MarkActive(ctx, key, types.ProfileUpdate{LookingForMatch: types.Ptr(false)}); err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	return nil
}

// UpdateStatus merges presence fields without touching queue membership.
func (m *Matchmaker) UpdateStatus(ctx context.Context, key string, s types.StatusUpdate) error {
	if key == "" {
		return errs.Invalid("player_key", "missing")
	}
	if s.PreferredMode != nil {
		if _, err := m.Mode(*s.PreferredMode); err != nil {
			return err
		}
	}
	_, err := m.presence.MarkActive(ctx, key, types.ProfileUpdate{
		IsOnline:        s.IsOnline,
		LookingForMatch: s.LookingForMatch,
		PreferredMode:   s.PreferredMode,
	})
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (m *Matchmaker) QueueLength(mode types.Mode) int {
	q, ok := m.queues[mode]
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot copies a mode's queue in FIFO order.
func (m *Matchmaker) Snapshot(mode types.Mode) []types.QueueEntry {
	q, ok := m.queues[mode]
	if !ok {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

func (m *Matchmaker) enqueue(mode types.Mode, cfg types.ModeConfig, entry types.QueueEntry, stamp uint64) ([]types.Match, []departure, int) {
	key := entry.PlayerKey
	q := m.queues[mode]
	for {
		if prev, ok := m.membership(key); ok && prev != mode {
			m.remove(prev, key)
		}

		q.mu.Lock()
		m.memberMu.Lock()
		if cur, ok := m.member[key]; ok && cur.mode != mode {
			// a concurrent join moved the player elsewhere; pull them back out first
			m.memberMu.Unlock()
			q.mu.Unlock()
			continue
		}
		m.member[key] = seat{mode: mode, stamp: stamp}
		m.memberMu.Unlock()

		q.removeLocked(key)
		q.entries = append(q.entries, entry)
		matches, left := m.drainLocked(mode, cfg, q)
		pos := q.positionLocked(key)
		metrics.QueueSize.WithLabelValues(string(mode)).Set(float64(len(q.entries)))
		q.mu.Unlock()
		return matches, left, pos
	}
}

func (m *Matchmaker) drainLocked(mode types.Mode, cfg types.ModeConfig, q *queue) ([]types.Match, []departure) {
	var (
		matches []types.Match
		left    []departure
	)
	for len(q.entries) >= cfg.Players {
		group := slices.Clone(q.entries[:cfg.Players])
		q.entries = slices.Clone(q.entries[cfg.Players:])

		now := m.presence.Now()
		matches = append(matches, types.Match{
			ID:        newMatchID(mode, now),
			Mode:      mode,
			Players:   group,
			CreatedAt: now,
			Status:    types.MatchStatusReady,
		})

		m.memberMu.Lock()
		for _, e := range group {
			left = append(left, m.departLocked(mode, e.PlayerKey))
		}
		m.memberMu.Unlock()
	}
	return matches, left
}

// emit runs after the queue lock is released.
func (m *Matchmaker) emit(ctx context.Context, matches []types.Match, left []departure) {
	m.clearLooking(ctx, left)
	for _, mt := range matches {
		metrics.MatchesTotal.WithLabelValues(string(mt.Mode)).Inc()
		m.log.Info("match formed",
			zap.String("matchId", mt.ID),
			zap.String("mode", string(mt.Mode)),
			zap.Strings("players", mt.PlayerKeys()))
		if m.notifier != nil {
			m.notifier.Notify(mt)
		}
	}
}

var errRejoined = errors.New("player joined again")

// clearLooking drops the looking-for-match flag of departed players unless
// they have joined a queue again since leaving. The stamp is checked inside
// the store's atomic update, so a rejoin either lands first and wins or
// raises the flag after the clear.
func (m *Matchmaker) clearLooking(ctx context.Context, left []departure) {
	for _, d := range left {
		_, err := m.st.Modify(ctx, d.key, func(p *types.Profile) error {
			if m.lastJoin(d.key) != d.stamp {
				return errRejoined
			}
			p.Presence.LookingForMatch = false
			return nil
		})
		if err != nil && !errors.Is(err, errRejoined) {
			m.log.Warn("clear looking-for-match", zap.String("player", d.key), zap.Error(err))
		}
	}
}

func (m *Matchmaker) stampJoin(key string) uint64 {
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	m.joinSeq++
	m.joins[key] = m.joinSeq
	return m.joinSeq
}

func (m *Matchmaker) lastJoin(key string) uint64 {
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	return m.joins[key]
}

// departLocked releases key's seat in mode. Callers hold memberMu. A seat
// already taken elsewhere yields a zero stamp, which never matches a join.
func (m *Matchmaker) departLocked(mode types.Mode, key string) departure {
	s, ok := m.member[key]
	if !ok || s.mode != mode {
		return departure{key: key}
	}
	delete(m.member, key)
	return departure{key: key, stamp: s.stamp}
}

func (m *Matchmaker) membership(key string) (types.Mode, bool) {
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	s, ok := m.member[key]
	return s.mode, ok
}

func (m *Matchmaker) remove(mode types.Mode, key string) bool {
	q := m.queues[mode]
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := q.removeLocked(key)
	m.memberMu.Lock()
	if m.member[key].mode == mode {
		delete(m.member, key)
	}
	m.memberMu.Unlock()
	metrics.QueueSize.WithLabelValues(string(mode)).Set(float64(len(q.entries)))
	return removed
}

func (q *queue) removeLocked(key string) bool {
	i := q.positionLocked(key) - 1
	if i < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	return true
}

// positionLocked is 1-based; 0 means absent.
func (q *queue) positionLocked(key string) int {
	for i, e := range q.entries {
		if e.PlayerKey == key {
			return i + 1
		}
	}
	return 0
}

func validatePreferences(p types.Preferences) error {
	if p.RatingRange < 0 || p.RatingRange > maxRatingRange {
		return errs.Invalid("preferences.rating_range", "must be between 0 and %d", maxRatingRange)
	}
	if len(p.PreferredLanguage) > maxPrefLength {
		return errs.Invalid("preferences.preferred_language", "longer than %d characters", maxPrefLength)
	}
	if len(p.Region) > maxPrefLength {
		return errs.Invalid("preferences.region", "longer than %d characters", maxPrefLength)
	}
	return nil
}

func newMatchID(mode types.Mode, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", mode, at.UnixMilli(), suffix)
}
