package models

import "time"

// RatelimitScope names a group of routes sharing one limiter rate.
type RatelimitScope string

const (
	// RatelimitScopeLogin covers the public storefront login form.
	RatelimitScopeLogin RatelimitScope = "login"
	// RatelimitScopeAdmin covers the embedded admin API, keyed by shop.
	RatelimitScopeAdmin RatelimitScope = "admin"
)

// Valid reports whether s is a known scope.
func (s RatelimitScope) Valid() bool {
	return s == RatelimitScopeLogin || s == RatelimitScopeAdmin
}

// RatelimitConfig holds the limiter rate for a scope (e.g. "5-S", "100-M").
type RatelimitConfig struct {
	Scope     RatelimitScope `json:"scope"`
	Rate      string         `json:"rate"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
