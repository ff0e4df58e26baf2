package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homula/shop-multipass/internal/models"
)

// ShopSessionRepository stores offline Admin API sessions.
type ShopSessionRepository struct {
	db *DB
}

// NewShopSessionRepository creates a new shop session repository.
func NewShopSessionRepository(db *DB) *ShopSessionRepository {
	return &ShopSessionRepository{db: db}
}

// Get retrieves the session for shop, or models.ErrSessionNotFound.
func (r *ShopSessionRepository) Get(ctx context.Context, shop string) (*models.ShopSession, error) {
	s := &models.ShopSession{}
	err := r.db.QueryRowContext(ctx, `
		SELECT shop, access_token, scope, created_at, updated_at
		FROM shop_sessions WHERE shop = $1
	`, normalizeShop(shop)).Scan(&s.Shop, &s.AccessToken, &s.Scope, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shop session: %w", err)
	}
	return s, nil
}

// AccessToken returns the offline access token for shop.
func (r *ShopSessionRepository) AccessToken(ctx context.Context, shop string) (string, error) {
	s, err := r.Get(ctx, shop)
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// Save upserts a session.
func (r *ShopSessionRepository) Save(ctx context.Context, s *models.ShopSession) error {
	shop := normalizeShop(s.Shop)
	if shop == "" || s.AccessToken == "" {
		return fmt.Errorf("shop and access token are required")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shop_sessions (shop, access_token, scope, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shop) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			scope = EXCLUDED.scope,
			updated_at = EXCLUDED.updated_at
	`, shop, s.AccessToken, s.Scope, now, now)
	if err != nil {
		return fmt.Errorf("save shop session: %w", err)
	}
	return nil
}

// List returns every installed shop. Access tokens are not loaded.
func (r *ShopSessionRepository) List(ctx context.Context) ([]*models.ShopSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT shop, scope, created_at, updated_at FROM shop_sessions ORDER BY shop
	`)
	if err != nil {
		return nil, fmt.Errorf("list shop sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.ShopSession
	for rows.Next() {
		s := &models.ShopSession{}
		if err := rows.Scan(&s.Shop, &s.Scope, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan shop session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shop sessions: %w", err)
	}
	return out, nil
}
