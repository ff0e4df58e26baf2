package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homula/shop-multipass/internal/models"
)

// NewLoginEvent creates a login event. The email is stored only as a hash.
func NewLoginEvent(eventType models.LoginEventType, shop, email, remoteIP, reason string) *models.LoginEvent {
	return &models.LoginEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Shop:       shop,
		EmailHash:  HashEmail(email),
		RemoteIP:   remoteIP,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// HashEmail returns the hex SHA-256 of the trimmed, lower-cased email, or "" for an empty email.
func HashEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
