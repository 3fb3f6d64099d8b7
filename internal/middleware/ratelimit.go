package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type rateErr struct {
	Error string `json:"error"`
}

func RateLimitMiddleware(l *rate.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			retry := 1.0
			if l.Limit() > 0 {
				retry = 1.0 / float64(l.Limit())
			}
			if retry < 1 {
				retry = 1
			}
			rateLimitBlocked.WithLabelValues("local").Inc()
			tooManyRequests(w, int(retry))
		})
	}
}

func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RedisRateLimit is a fixed-window limiter shared across instances: each client IP
// gets maxRequests per window, counted with INCR on key rl:<window_seconds>:<ip>.
// INCR and TTL run in one transaction; a key left without an expiry gets it
// reapplied on the next request. Redis failures let the request through.
func RedisRateLimit(client *redis.Client, maxRequests int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if client == nil || maxRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	prefix := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()

			key := prefix + clientIP(r)
			var incr *redis.IntCmd
			var ttl *redis.DurationCmd
			_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				ttl = pipe.TTL(ctx, key)
				return nil
			})
			if err != nil {
				logger.WarnContext(r.Context(), "rate_limit_redis_error", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			// TTL answers -1 for a key without expiry
			remaining := ttl.Val()
			if remaining < 0 {
				if err := client.Expire(ctx, key, window).Err(); err != nil {
					logger.WarnContext(r.Context(), "rate_limit_redis_expire",
						slog.String("key", key),
						slog.String("error", err.Error()),
					)
				}
				remaining = window
			}

			if incr.Val() > int64(maxRequests) {
				rateLimitBlocked.WithLabelValues("redis").Inc()
				tooManyRequests(w, int(remaining.Seconds())+1)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(rateErr{Error: "too_many_requests"})
}
