// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration. Every field has a default so the
// engine can start with an empty environment (in-memory store, fixed seed
// disabled).
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	// TickEvery is the wall-clock duration of one simulation tick.
	TickEvery time.Duration

	// SaveEvery is how often the full market and agent state is persisted.
	SaveEvery time.Duration

	// Seed seeds the simulation's random source when non-zero. A zero
	// seed means seed from the current time.
	Seed int64

	// StonksFile optionally overrides the embedded stonk catalog.
	StonksFile string
}

// Load reads configuration from the environment.
func Load() Config {
	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" && !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	if addr == "" {
		addr = envDefault("STONKS_ADDR", ":8080")
	}

	return Config{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		TickEvery:   envDurationDefault("STONKS_TICK_EVERY", 15*time.Second),
		SaveEvery:   envDurationDefault("STONKS_SAVE_EVERY", time.Minute),
		Seed:        envInt64Default("STONKS_SEED", 0),
		StonksFile:  strings.TrimSpace(os.Getenv("STONKS_FILE")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
