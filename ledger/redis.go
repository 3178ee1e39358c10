package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MinRetention is the shortest expiry a Redis record is written with.
// Insert never skips a write, so a keepUntil that looks past to the
// ledger's clock still leaves a record for this long.
const MinRetention = time.Minute

// RedisLedger stores one key per revoked id. Retention is delegated to
// Redis key expiry: a record disappears on its own at keepUntil.
type RedisLedger struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisLedger returns a ledger writing keys under prefix.
func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisLedger{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock sets the clock used to turn keepUntil into a key expiry. It
// must be the clock the engine issues tokens with (see
// tokenpair.Builder.WithClock), otherwise records expire early or late.
func (l *RedisLedger) WithClock(now func() time.Time) *RedisLedger {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *RedisLedger) key(id uuid.UUID) string {
	return l.prefix + ":" + id.String()
}

// Exists reports whether id has been revoked.
func (l *RedisLedger) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := l.redis.Exists(ctx, l.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Insert records id until keepUntil, and for at least MinRetention.
func (l *RedisLedger) Insert(ctx context.Context, id uuid.UUID, keepUntil time.Time) error {
	ttl := max(keepUntil.Sub(l.now()), MinRetention)
	// Round up so the key never expires before the token does.
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}

	// SET without NX keeps the write idempotent; a repeat only refreshes
	// the identical expiry.
	if err := l.redis.Set(ctx, l.key(id), keepUntil.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (l *RedisLedger) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := l.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
