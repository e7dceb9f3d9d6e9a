package chi

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects requests beyond the limiter's rate with 429.
// A nil limiter disables limiting. Health and metrics are never limited.
func RateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow() {
				retry := time.Second
				if l := limiter.Limit(); l > 0 && l < 1 {
					retry = time.Duration(float64(time.Second) / float64(l))
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
