package middlewarex

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimit is a fixed-window per-caller limiter backed by redis, so the
// window is shared across replicas. The key is the authenticated donor
// when available, the remote address otherwise. Redis being down never
// blocks payments; the request passes and the error is logged.
func RateLimit(rdb *redis.Client, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiterKey(r)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				log.Error().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, time.Minute)
			}
			if count > int64(perMinute) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limiterKey(r *http.Request) string {
	window := time.Now().Unix() / 60
	if ident, ok := IdentityFrom(r.Context()); ok && ident.DonorID > 0 {
		return fmt.Sprintf("rl:donor:%d:%d", ident.DonorID, window)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return fmt.Sprintf("rl:ip:%s:%d", host, window)
}
