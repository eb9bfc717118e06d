package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"

	"github.com/whoneedsawriter/platform/internal/config"
)

const keyGatewayUser = "gateway:key:%d"

// GatewayLimiter throttles external API calls per API key owner. A nil
// limiter (rate limiting disabled) allows everything.
type GatewayLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewGatewayLimiter(cfg config.Config) (*GatewayLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.KeyRate <= 0 || limitCfg.KeyBurst <= 0 {
		return nil, errors.New("gateway key rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &GatewayLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.KeyRate,
		burst:   limitCfg.KeyBurst,
	}, nil
}

func (l *GatewayLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *GatewayLimiter) Allow(ctx context.Context, userID snowflake.ID) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGatewayUser, userID.Int64()), l.rate, l.burst)
}
