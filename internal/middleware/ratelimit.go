package middleware

import (
	"net/http"

	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/request"
)

// Default limiter rates per scope, in ulule/limiter format.
const (
	DefaultLoginRate = "10-M"
	DefaultAdminRate = "300-M"
)

// DefaultRate returns the built-in rate for scope.
func DefaultRate(scope models.RatelimitScope) string {
	if scope == models.RatelimitScopeAdmin {
		return DefaultAdminRate
	}
	return DefaultLoginRate
}

// KeyGetter derives the limiter key for a request.
type KeyGetter func(r *http.Request) string

// ClientIPKey limits per client address.
func ClientIPKey(r *http.Request) string {
	return "ip:" + request.ClientIP(r)
}

// ShopKey limits per authenticated shop, falling back to the client address.
func ShopKey(r *http.Request) string {
	if shop := request.ShopFromContext(r); shop != "" {
		return "shop:" + shop
	}
	return ClientIPKey(r)
}

// KeyGetterFor returns the key strategy for scope.
func KeyGetterFor(scope models.RatelimitScope) KeyGetter {
	if scope == models.RatelimitScopeAdmin {
		return ShopKey
	}
	return ClientIPKey
}
