package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/lernia-dev/sessioncore/device"
	"github.com/lernia-dev/sessioncore/rate"
)

type errorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Data    interface{} `json:"data,omitempty"`
}

type throttleData struct {
	// RetryAfter is whole seconds until a retry may succeed.
	RetryAfter int64 `json:"retryAfter"`
	// ResetAt is the window reset time in epoch seconds.
	ResetAt int64 `json:"resetAt"`
}

// Throttle gates requests through the limiter, keyed by client IP, and sets
// the X-RateLimit-* headers on every response. Rejected requests get a 429
// with Retry-After and a structured body. A Redis outage fails closed with
// a 503: limiting must never silently default to "allowed".
func Throttle(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.Consume(r.Context(), device.ClientIP(r))
			if err != nil {
				writeJSON(w, http.StatusServiceUnavailable, errorBody{
					Success: false,
					Error:   "service unavailable",
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int64(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Success: false,
					Error:   "too many requests",
					Data: throttleData{
						RetryAfter: retryAfter,
						ResetAt:    result.ResetAt.Unix(),
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
