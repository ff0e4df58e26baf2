package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginEventType classifies a login event.
type LoginEventType string

const (
	LoginEventTokenIssued        LoginEventType = "token_issued"
	LoginEventVerificationFailed LoginEventType = "verification_failed"
)

// LoginEvent records a multipass issuance or a failed verification.
// It never carries the token or the secret.
type LoginEvent struct {
	ID         uuid.UUID      `json:"id"`
	Type       LoginEventType `json:"type"`
	Shop       string         `json:"shop"`
	EmailHash  string         `json:"email_hash,omitempty"`
	RemoteIP   string         `json:"remote_ip,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
