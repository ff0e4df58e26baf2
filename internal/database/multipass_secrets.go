package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homula/shop-multipass/internal/models"
)

// MultipassSecretRepository stores one multipass secret per shop.
type MultipassSecretRepository struct {
	db *DB
}

// NewMultipassSecretRepository creates a new multipass secret repository.
func NewMultipassSecretRepository(db *DB) *MultipassSecretRepository {
	return &MultipassSecretRepository{db: db}
}

// Get retrieves the secret record for shop.
func (r *MultipassSecretRepository) Get(ctx context.Context, shop string) (*models.MultipassSecret, error) {
	s := &models.MultipassSecret{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, shop, secret, created_at, updated_at
		FROM multipass_secrets WHERE shop = $1
	`, normalizeShop(shop)).Scan(&s.ID, &s.Shop, &s.Secret, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSecretNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get multipass secret: %w", err)
	}
	return s, nil
}

// GetSecret returns the secret for shop, or models.ErrSecretNotFound.
func (r *MultipassSecretRepository) GetSecret(ctx context.Context, shop string) (string, error) {
	s, err := r.Get(ctx, shop)
	if err != nil {
		return "", err
	}
	return s.Secret, nil
}

// SetSecret upserts the secret for shop.
func (r *MultipassSecretRepository) SetSecret(ctx context.Context, shop, secret string) error {
	shop = normalizeShop(shop)
	if shop == "" {
		return fmt.Errorf("shop cannot be empty")
	}
	if secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO multipass_secrets (id, shop, secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shop) DO UPDATE SET
			secret = EXCLUDED.secret,
			updated_at = EXCLUDED.updated_at
	`, uuid.New(), shop, secret, now, now)
	if err != nil {
		return fmt.Errorf("set multipass secret: %w", err)
	}
	return nil
}

// Status reports whether shop has a secret without exposing it.
func (r *MultipassSecretRepository) Status(ctx context.Context, shop string) (*models.SecretStatus, error) {
	status := &models.SecretStatus{Shop: normalizeShop(shop)}
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT updated_at FROM multipass_secrets WHERE shop = $1
	`, status.Shop).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get multipass secret status: %w", err)
	}
	status.Configured = true
	status.UpdatedAt = &updatedAt
	return status, nil
}

// List returns the status of every configured shop.
func (r *MultipassSecretRepository) List(ctx context.Context) ([]*models.SecretStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT shop, updated_at FROM multipass_secrets ORDER BY shop
	`)
	if err != nil {
		return nil, fmt.Errorf("list multipass secrets: %w", err)
	}
	defer rows.Close()

	var out []*models.SecretStatus
	for rows.Next() {
		var updatedAt time.Time
		s := &models.SecretStatus{Configured: true}
		if err := rows.Scan(&s.Shop, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan multipass secret: %w", err)
		}
		s.UpdatedAt = &updatedAt
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list multipass secrets: %w", err)
	}
	return out, nil
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
