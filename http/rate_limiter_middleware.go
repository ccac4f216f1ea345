package http

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
)

// RateLimitMiddleware lets a request through to next while the client's
// bucket has tokens. Rejected requests get a Retry-After header and go to
// onLimit, or a plain 429 when onLimit is nil.
func RateLimitMiddleware(
	limiter *RateLimiter,
	logger *slog.Logger,
	next http.Handler,
	onLimit http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		ok, wait := limiter.Allow(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "retry_after", wait)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		if onLimit != nil {
			onLimit.ServeHTTP(w, r)
			return
		}
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}
