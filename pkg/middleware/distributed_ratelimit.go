package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/observability"
)

// DistributedRateLimiter implements fixed-window rate limiting backed by
// Redis so limits hold across instances.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{redis: redisClient, config: config, prefix: prefix}
}

// Allow checks whether one more request fits in the current window. A
// Redis error is returned alongside allowed=true: the limiter fails open.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// TTL returns the time until the window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the counter for a key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// RateLimit applies per-user limits to authenticated requests and per-IP
// limits to everything else.
func RateLimit(redisClient *redis.Client, logger *observability.Logger) func(http.Handler) http.Handler {
	userLimiter := NewDistributedRateLimiter(redisClient, PerUserRateLimitConfig(), "ratelimit:user")
	anonLimiter := NewDistributedRateLimiter(redisClient, DefaultRateLimitConfig(), "ratelimit:anon")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var key string
			var limiter *DistributedRateLimiter
			if principal, ok := PrincipalFrom(ctx); ok {
				key = fmt.Sprintf("user:%d", principal.UserID)
				limiter = userLimiter
			} else {
				key = "ip:" + clientIP(r)
				limiter = anonLimiter
			}

			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				// Fail open: a Redis outage must not take the API down.
				logger.WithError(err).Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if ttl, err := limiter.TTL(ctx, key); err == nil && ttl > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%.0f", ttl.Seconds()))
				}
				httputil.WriteTooManyRequests(w, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
