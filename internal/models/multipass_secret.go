package models

import (
	"time"

	"github.com/google/uuid"
)

// MultipassSecret is the shared multipass secret of one shop.
// Secret is never serialized.
type MultipassSecret struct {
	ID        uuid.UUID `json:"id"`
	Shop      string    `json:"shop"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SecretStatus is what the admin API reveals about a shop's secret.
type SecretStatus struct {
	Shop       string     `json:"shop"`
	Configured bool       `json:"configured"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}
