package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"eventsignup/internal/adapters/ratelimit"
	h "eventsignup/internal/delivery/http/helpers"
)

// RateLimiter is satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, subject string) (ratelimit.Decision, error)
}

// RateLimit throttles the wrapped handler per acting account, or per client IP before authentication.
// Limiter errors are logged and the request is let through. A nil limiter disables the wrapper.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			subject := "ip:" + clientIP(r)
			if id, ok := AccountIDFromContext(r.Context()); ok {
				subject = "acc:" + id
			}
			d, err := limiter.Allow(r.Context(), subject)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", "err", err)
			}
			if d.Remaining >= 0 {
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			}
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(d.ResetAt.Sub(timeNow()).Seconds()+0.5))))
				h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeRateLimited, "too many requests")
				return
			}
			next(w, r)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
