package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ EventSink = (*RedisSink)(nil)

// counterTTL keeps yesterday's counters readable for a day after rollover.
const counterTTL = 48 * time.Hour

// RedisSink maintains daily per-format counters of each event type.
type RedisSink struct {
	Client *redis.Client
	now    func() time.Time
}

// InitRedis connects to Redis and returns a RedisSink.
func InitRedis(ctx context.Context, addr string, logger *zap.Logger) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Connected to Redis", zap.String("addr", addr))
	return NewRedisSink(client), nil
}

// NewRedisSink wraps an existing client.
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{Client: client, now: time.Now}
}

// CounterKey returns the key counting events of typ for format on day.
func CounterKey(format string, typ EventType, day time.Time) string {
	return fmt.Sprintf("adunits:events:%s:%s:%s", format, typ, day.UTC().Format("2006-01-02"))
}

// Record increments the daily counter of the event's type.
func (s *RedisSink) Record(ctx context.Context, ev Event) error {
	if s == nil || s.Client == nil {
		return ErrUnavailable
	}
	day := ev.Timestamp
	if day.IsZero() {
		day = s.now()
	}
	key := CounterKey(ev.Format, ev.Type, day)

	pipe := s.Client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment %s: %w", key, err)
	}
	return nil
}

// Count returns the counter for format and typ on day.
func (s *RedisSink) Count(ctx context.Context, format string, typ EventType, day time.Time) (int64, error) {
	n, err := s.Client.Get(ctx, CounterKey(format, typ, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Close shuts down the Redis client.
func (s *RedisSink) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}
