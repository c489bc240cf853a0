// Package telemetry publishes scheduler events to Redis pub/sub, grounded
// on the teacher's redis.Client wrapper (redis/client.go): same dial/read/
// write timeouts, same Named zap sub-logger, same connectivity check on
// construction.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/haldane/mlfqkernel/internal/kernel"
)

// RedisSink publishes kernel.Event values to a Redis channel. Publish
// sends each event synchronously on its own 200ms context, so a slow or
// unreachable Redis blocks the caller for at most that long (kernel.
// EventSink's contract — see events.go); failures are logged, not returned.
type RedisSink struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisSink dials addr/db and returns a sink publishing to channel.
// Connectivity is checked once at construction the same way the teacher's
// NewClient pings immediately after dialing, logging rather than failing
// the caller — telemetry is best-effort, not load-bearing.
func NewRedisSink(addr string, db int, channel string, log *zap.Logger) *RedisSink {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("telemetry")

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis telemetry sink: connection check failed", zap.Error(err), zap.String("addr", addr))
	} else {
		log.Info("redis telemetry sink connected", zap.String("addr", addr), zap.String("channel", channel))
	}

	return &RedisSink{client: client, channel: channel, log: log}
}

// Publish implements kernel.EventSink.
func (s *RedisSink) Publish(ev kernel.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Warn("telemetry: marshal event failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.log.Warn("telemetry: publish failed", zap.Error(err), zap.String("kind", ev.Kind))
	}
}

// Close releases the underlying Redis connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
