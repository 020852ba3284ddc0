package match

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/internal/metrics"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

// Run evicts idle queue entries until ctx is done. It returns immediately
// when no idle timeout is configured.
func (m *Matchmaker) Run(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx)
		}
	}
}

// EvictIdle drops entries queued for longer than the idle timeout and
// reports how many were removed.
func (m *Matchmaker) EvictIdle(ctx context.Context) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.presence.Now().Add(-m.idleTimeout)
	total := 0
	for mode, q := range m.queues {
		evicted := m.evictBefore(mode, q, cutoff)
		if len(evicted) == 0 {
			continue
		}
		keys := make([]string, len(evicted))
		for i, d := range evicted {
			keys[i] = d.key
		}
		total += len(evicted)
		metrics.EvictionsTotal.WithLabelValues(string(mode)).Add(float64(len(evicted)))
		m.log.Info("evicted idle queue entries",
			zap.String("mode", string(mode)),
			zap.Strings("players", keys))
		m.clearLooking(ctx, evicted)
	}
	return total
}

func (m *Matchmaker) evictBefore(mode types.Mode, q *queue, cutoff time.Time) []departure {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stale []string
	kept := make([]types.QueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.JoinedAt.Before(cutoff) {
			stale = append(stale, e.PlayerKey)
			continue
		}
		kept = append(kept, e)
	}
	if len(stale) == 0 {
		return nil
	}
	q.entries = kept

	evicted := make([]departure, 0, len(stale))
	m.memberMu.Lock()
	for _, key := range stale {
		evicted = append(evicted, m.departLocked(mode, key))
	}
	m.memberMu.Unlock()
	metrics.QueueSize.WithLabelValues(string(mode)).Set(float64(len(q.entries)))
	return evicted
}
