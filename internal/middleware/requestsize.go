package middleware

import (
	"net/http"
)

const (
	// DefaultMaxRequestSize caps JSON bodies on the admin API (64KB).
	DefaultMaxRequestSize int64 = 64 << 10
	// MaxLoginFormSize caps the storefront login form (16KB).
	MaxLoginFormSize int64 = 16 << 10
)

// MaxRequestSize limits request bodies to maxBytes.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
