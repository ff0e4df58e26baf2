package database

import (
	"context"
	"fmt"
	"time"

	"github.com/homula/shop-multipass/internal/models"
)

// LoginEventRepository persists login events consumed from the queue.
type LoginEventRepository struct {
	db *DB
}

// NewLoginEventRepository creates a new login event repository.
func NewLoginEventRepository(db *DB) *LoginEventRepository {
	return &LoginEventRepository{db: db}
}

// Insert stores an event. Re-delivered events with a known ID are ignored.
func (r *LoginEventRepository) Insert(ctx context.Context, e *models.LoginEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_events (id, type, shop, email_hash, remote_ip, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, string(e.Type), normalizeShop(e.Shop), e.EmailHash, e.RemoteIP, e.Reason, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}

// DeleteOlderThan removes events that occurred before now minus retention.
func (r *LoginEventRepository) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM login_events WHERE occurred_at < $1
	`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("delete login events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete login events: %w", err)
	}
	return n, nil
}
