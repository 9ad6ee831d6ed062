package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// SubmissionLimit throttles requests with a single limiter shared by all
// clients. No per-client state is kept, so submitters are never tracked by
// address.
func SubmissionLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 1
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return limit(limiter)
}

func limit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "please try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
