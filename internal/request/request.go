package request

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const shopContextKey contextKey = "shop"

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithShop returns a context carrying the authenticated admin's shop domain.
func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopContextKey, shop)
}

// ShopFromContext returns the authenticated shop domain, or "" if missing.
func ShopFromContext(r *http.Request) string {
	s, _ := r.Context().Value(shopContextKey).(string)
	return s
}
