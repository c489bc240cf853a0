// Package config loads the scheduler's tunables from the environment,
// the same way the teacher reads its deployment toggles directly via
// os.Getenv at startup (cmd/zmux-server/main.go) rather than through a
// flags/viper layer.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/haldane/mlfqkernel/internal/kernel"
)

// Config is the process-wide configuration resolved once at boot.
type Config struct {
	Kernel kernel.Config

	// HTTPAddr is the admin API's bind address.
	HTTPAddr string

	// Env is "dev" or "prod"; mirrors the teacher's ENV-gated CORS switch.
	Env string

	// RedisAddr, if non-empty, enables the Redis telemetry sink.
	RedisAddr string
	RedisDB   int
}

// Load resolves Config from the environment, falling back to
// kernel.DefaultConfig()'s literal values (spec.md §8) for anything unset.
func Load() Config {
	def := kernel.DefaultConfig()

	cfg := Config{
		Kernel: kernel.Config{
			TableSize:      envInt("MLFQ_TABLE_SIZE", def.TableSize),
			Quanta:         envIntList("MLFQ_QUANTA", def.Quanta),
			AgeThreshold:   envInt64("MLFQ_AGE_THRESHOLD", def.AgeThreshold),
			AgeBoostPeriod: envInt64("MLFQ_AGE_BOOST_PERIOD", def.AgeBoostPeriod),
			NumCPU:         envInt("MLFQ_NUM_CPU", def.NumCPU),
			TickInterval:   envDuration("MLFQ_TICK_INTERVAL", def.TickInterval),
		},
		HTTPAddr:  envString("MLFQ_HTTP_ADDR", "127.0.0.1:8080"),
		Env:       envString("ENV", "prod"),
		RedisAddr: envString("MLFQ_REDIS_ADDR", ""),
		RedisDB:   envInt("MLFQ_REDIS_DB", 0),
	}

	if len(cfg.Kernel.Quanta) == 0 {
		cfg.Kernel.Quanta = def.Quanta
	}

	return cfg
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// envIntList parses a comma-separated list, e.g. "1,2,4,8,16".
func envIntList(key string, def []int) []int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return def
		}
		out = append(out, n)
	}
	return out
}
