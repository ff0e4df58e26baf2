package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a request including the secret store lookup.
const DefaultRequestTimeout = 15 * time.Second

const timeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`

// Timeout enforces a deadline on handlers and answers 503 with a JSON body when it passes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
