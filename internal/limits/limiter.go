package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/fedramp_marketplace/internal/config"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

const keyPrefix = "catalog:ratelimit"

// ClientLimiter enforces per-client API limits with fixed one minute windows
// and a parallel request counter kept in redis. A nil limiter allows
// everything.
type ClientLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	now    func() time.Time
}

func NewClientLimiter(client *redis.Client, cfg config.RateLimitConfig) *ClientLimiter {
	if client == nil || !cfg.Enabled() {
		return nil
	}
	return &ClientLimiter{client: client, cfg: cfg, now: time.Now}
}

// Acquire counts one request for clientID. When it returns nil the caller
// must call Release once the request finishes.
func (l *ClientLimiter) Acquire(ctx context.Context, clientID string) error {
	if l == nil {
		return nil
	}
	if l.cfg.RequestsPerMinute > 0 {
		if err := l.windowAdd(ctx, "rpm", clientID, 1, l.cfg.RequestsPerMinute); err != nil {
			return err
		}
	}
	if l.cfg.ParallelRequests > 0 {
		if err := l.semaphoreAcquire(ctx, clientID); err != nil {
			return err
		}
	}
	return nil
}

func (l *ClientLimiter) Release(ctx context.Context, clientID string) {
	if l == nil || l.cfg.ParallelRequests <= 0 {
		return
	}
	l.client.Decr(ctx, l.key("sem", clientID))
}

// ProductAllowance charges count requested product names against the
// client's per minute product budget.
func (l *ClientLimiter) ProductAllowance(ctx context.Context, clientID string, count int) error {
	if l == nil || l.cfg.ProductsPerMinute <= 0 || count <= 0 {
		return nil
	}
	return l.windowAdd(ctx, "ppm", clientID, count, l.cfg.ProductsPerMinute)
}

func (l *ClientLimiter) windowAdd(ctx context.Context, kind, clientID string, amount, limit int) error {
	window := l.now().UTC().Unix() / 60
	redisKey := fmt.Sprintf("%s:%d", l.key(kind, clientID), window)

	used, err := l.client.IncrBy(ctx, redisKey, int64(amount)).Result()
	if err != nil {
		return err
	}
	if used == int64(amount) {
		l.client.Expire(ctx, redisKey, time.Minute)
	}
	if used > int64(limit) {
		l.client.DecrBy(ctx, redisKey, int64(amount))
		return ErrLimitExceeded
	}
	return nil
}

func (l *ClientLimiter) semaphoreAcquire(ctx context.Context, clientID string) error {
	redisKey := l.key("sem", clientID)
	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, 5*time.Minute)
	}
	if cnt > int64(l.cfg.ParallelRequests) {
		l.client.Decr(ctx, redisKey)
		return ErrLimitExceeded
	}
	return nil
}

func (l *ClientLimiter) key(kind, clientID string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, clientID)
}
