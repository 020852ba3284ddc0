package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

type Config struct {
	// Server
	HTTPAddr string
	Env      string
	LogLevel string

	// Store: "redis" or "memory"
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Queue hardening; a zero idle timeout disables eviction
	QueueIdleTimeout   time.Duration
	QueueSweepInterval time.Duration

	Modes map[types.Mode]types.ModeConfig
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StoreBackend:  getEnv("STORE_BACKEND", "redis"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Modes:         types.DefaultModes(),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.QueueIdleTimeout, err = getDuration("QUEUE_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.QueueSweepInterval, err = getDuration("QUEUE_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.StoreBackend != "redis" && cfg.StoreBackend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND: unsupported backend %q", cfg.StoreBackend)
	}

	overrides := map[types.Mode]string{
		types.ModeDuel:         "DUEL_RATING_RANGE",
		types.ModeRush:         "RUSH_RATING_RANGE",
		types.ModeBattleground: "BATTLEGROUND_RATING_RANGE",
	}
	for mode, env := range overrides {
		mc := cfg.Modes[mode]
		if mc.RatingRange, err = getInt(env, mc.RatingRange); err != nil {
			return nil, err
		}
		if mc.RatingRange <= 0 {
			return nil, fmt.Errorf("%s: must be positive", env)
		}
		cfg.Modes[mode] = mc
	}

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
