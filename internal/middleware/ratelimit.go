package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit applies a single process-wide token bucket to every request.
// The bucket holds `burst` tokens and refills the full burst over
// `refill` seconds worth of rate; callers that find the bucket empty
// get 429 immediately rather than queueing.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
