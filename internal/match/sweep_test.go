package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

func TestEvictIdle(t *testing.T) {
	f := newFixture(t, Options{IdleTimeout: 10 * time.Minute})
	ctx := context.Background()

	_, err := f.mm.JoinQueue(ctx, "early", types.ModeRush, types.Preferences{})
	require.NoError(t, err)
	_, err = f.mm.JoinQueue(ctx, "early-bg", types.ModeBattleground, types.Preferences{})
	require.NoError(t, err)
	f.clock.Advance(8 * time.Minute)
	_, err = f.mm.JoinQueue(ctx, "late", types.ModeRush, types.Preferences{})
	require.NoError(t, err)
	f.clock.Advance(3 * time.Minute)

	assert.Equal(t, 2, f.mm.EvictIdle(ctx))

	snap := f.mm.Snapshot(types.ModeRush)
	require.Len(t, snap, 1)
	assert.Equal(t, "late", snap[0].PlayerKey)
	assert.Zero(t, f.mm.QueueLength(types.ModeBattleground))

	p, err := f.st.Get(ctx, "early")
	require.NoError(t, err)
	assert.False(t, p.Presence.LookingForMatch)

	// evicted players can queue again
	res, err := f.mm.JoinQueue(ctx, "early", types.ModeRush, types.Preferences{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.QueuePosition)
}

func TestEvictIdleDisabled(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.mm.JoinQueue(ctx, "a", types.ModeRush, types.Preferences{})
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)

	assert.Zero(t, f.mm.EvictIdle(ctx))
	assert.Equal(t, 1, f.mm.QueueLength(types.ModeRush))

	// Run returns at once without a timeout
	done := make(chan struct{})
	go func() {
		f.mm.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run blocked with eviction disabled")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, Options{IdleTimeout: time.Minute, SweepInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.mm.JoinQueue(ctx, "a", types.ModeRush, types.Preferences{})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	done := make(chan struct{})
	go func() {
		f.mm.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.mm.QueueLength(types.ModeRush) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
