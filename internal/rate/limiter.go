package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix                  string
	EnableIPThrottle        bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// Limiter throttles refresh attempts per refresh token and, optionally, per
// client IP using fixed-window Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRefresh counts one refresh attempt for tokenDigest (and ip, when IP
// throttling is on) and returns ErrRateLimited once a window is exhausted.
// Callers pass the token digest, never the token itself.
func (l *Limiter) CheckRefresh(ctx context.Context, tokenDigest, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.refreshKey(tokenDigest), l.config.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.refreshIPKey(ip), l.config.RefreshCooldownDuration)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxRefreshAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// Reset clears the refresh counter for tokenDigest.
func (l *Limiter) Reset(ctx context.Context, tokenDigest string) error {
	if err := l.redis.Del(ctx, l.refreshKey(tokenDigest)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: only the first hit sets the TTL.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) refreshKey(tokenDigest string) string {
	return l.config.Prefix + ":r:" + tokenDigest
}

func (l *Limiter) refreshIPKey(ip string) string {
	return l.config.Prefix + ":ri:" + ip
}
