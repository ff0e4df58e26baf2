package models

import "time"

// DefaultCorsMaxAge is the preflight cache lifetime used when nothing is stored.
const DefaultCorsMaxAge = 600

// CorsConfig lists the origins allowed to call the embedded admin API.
// The storefront login form posts same-site and does not depend on it.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"` // comma-separated
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
