// Package guard is the abuse layer: sliding-window rate limits and
// activity freshness on Redis. It is advisory and fails open — a Redis
// outage makes it permissive, never inconsistent, because ledger
// correctness lives entirely in the transactional store.
package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ActionStartSession = "start_session"
	ActionWithdraw     = "withdraw"
	ActionLogin        = "login"
)

type RedisClient interface {
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type Config struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
	ActivityTTL     time.Duration
}

type Guard struct {
	rdb RedisClient
	cfg Config

	now func() time.Time
}

func New(rdb RedisClient, cfg Config) *Guard {
	return &Guard{
		rdb: rdb,
		cfg: cfg,
		now: time.Now,
	}
}

// Allow counts this call against the identity+action window and reports
// whether it is within the limit.
func (g *Guard) Allow(ctx context.Context, action, identity string) bool {
	if g.rdb == nil {
		return true
	}

	key := fmt.Sprintf("rl:%s:%s", action, identity)
	now := g.now()
	windowStart := now.Add(-g.cfg.RateLimitWindow)

	if err := g.rdb.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10)).Err(); err != nil {
		zap.L().Warn("rate limiter unavailable, allowing", zap.Error(err))
		return true
	}
	if err := g.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	}).Err(); err != nil {
		zap.L().Warn("rate limiter unavailable, allowing", zap.Error(err))
		return true
	}
	g.rdb.Expire(ctx, key, g.cfg.RateLimitWindow)

	count, err := g.rdb.ZCard(ctx, key).Result()
	if err != nil {
		zap.L().Warn("rate limiter unavailable, allowing", zap.Error(err))
		return true
	}
	if count > int64(g.cfg.RateLimitMax) {
		zap.L().Info("rate limit exceeded",
			zap.String("action", action), zap.String("identity", identity), zap.Int64("count", count))
		return false
	}
	return true
}

// MarkActivity records a fresh client interaction signal for the user.
func (g *Guard) MarkActivity(ctx context.Context, userID int) {
	if g.rdb == nil {
		return
	}
	key := fmt.Sprintf("act:%d", userID)
	if err := g.rdb.Set(ctx, key, "1", g.cfg.ActivityTTL).Err(); err != nil {
		zap.L().Warn("can't mark activity", zap.Error(err))
	}
}

// IsActive reports whether the user signalled interaction within the
// activity TTL. Errors count as active.
func (g *Guard) IsActive(ctx context.Context, userID int) bool {
	if g.rdb == nil {
		return true
	}
	key := fmt.Sprintf("act:%d", userID)
	n, err := g.rdb.Exists(ctx, key).Result()
	if err != nil {
		zap.L().Warn("activity check unavailable, assuming active", zap.Error(err))
		return true
	}
	return n == 1
}
