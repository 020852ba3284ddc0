package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("QUEUE_IDLE_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.QueueIdleTimeout)
	assert.Equal(t, 2, cfg.Modes[types.ModeDuel].Players)
	assert.Equal(t, 4, cfg.Modes[types.ModeRush].Players)
	assert.Equal(t, 100, cfg.Modes[types.ModeBattleground].Players)
	assert.Equal(t, 30, cfg.Modes[types.ModeDuel].BaseWaitSeconds())
	assert.Equal(t, 120, cfg.Modes[types.ModeBattleground].BaseWaitSeconds())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("QUEUE_IDLE_TIMEOUT", "0s")
	t.Setenv("DUEL_RATING_RANGE", "150")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Zero(t, cfg.QueueIdleTimeout)
	assert.Equal(t, 150, cfg.Modes[types.ModeDuel].RatingRange)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"REDIS_DB":           "one",
		"QUEUE_IDLE_TIMEOUT": "soon",
		"RUSH_RATING_RANGE":  "-5",
		"STORE_BACKEND":      "postgres",
	}
	for k, v := range tests {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
