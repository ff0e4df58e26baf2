package shopify

import (
	"context"
	"fmt"
	"time"

	"github.com/homula/shop-multipass/internal/models"
	"github.com/tidwall/gjson"
)

const (
	metafieldNamespace = "multipass"
	metafieldKey       = "secret"
)

const shopSecretQuery = `query {
  shop {
    id
    metafield(namespace: "multipass", key: "secret") {
      value
      updatedAt
    }
  }
}`

const setSecretMutation = `mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id }
    userErrors { field message }
  }
}`

// AccessTokenSource yields the offline Admin API token for a shop.
type AccessTokenSource interface {
	AccessToken(ctx context.Context, shop string) (string, error)
}

// MetafieldSecretStore keeps the multipass secret in a shop metafield.
type MetafieldSecretStore struct {
	admin  *AdminClient
	tokens AccessTokenSource
}

// NewMetafieldSecretStore creates a secret store backed by the shop's metafields.
func NewMetafieldSecretStore(admin *AdminClient, tokens AccessTokenSource) *MetafieldSecretStore {
	return &MetafieldSecretStore{admin: admin, tokens: tokens}
}

type shopMetafield struct {
	shopID    string
	value     string
	updatedAt time.Time
	exists    bool
}

func (s *MetafieldSecretStore) fetch(ctx context.Context, shop string) (*shopMetafield, error) {
	accessToken, err := s.tokens.AccessToken(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	data, err := s.admin.Query(ctx, shop, accessToken, shopSecretQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("read metafield: %w", err)
	}

	m := &shopMetafield{shopID: data.Get("shop.id").String()}
	if mf := data.Get("shop.metafield"); mf.Exists() && mf.Type != gjson.Null {
		m.exists = true
		m.value = mf.Get("value").String()
		m.updatedAt = mf.Get("updatedAt").Time()
	}
	return m, nil
}

// GetSecret returns the shop's secret or models.ErrSecretNotFound.
func (s *MetafieldSecretStore) GetSecret(ctx context.Context, shop string) (string, error) {
	m, err := s.fetch(ctx, shop)
	if err != nil {
		return "", err
	}
	if !m.exists || m.value == "" {
		return "", models.ErrSecretNotFound
	}
	return m.value, nil
}

// SetSecret writes the secret with metafieldsSet.
func (s *MetafieldSecretStore) SetSecret(ctx context.Context, shop, secret string) error {
	m, err := s.fetch(ctx, shop)
	if err != nil {
		return err
	}
	if m.shopID == "" {
		return fmt.Errorf("set metafield: shop id not returned")
	}
	accessToken, err := s.tokens.AccessToken(ctx, shop)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	vars := map[string]any{
		"metafields": []map[string]any{{
			"ownerId":   m.shopID,
			"namespace": metafieldNamespace,
			"key":       metafieldKey,
			"type":      "single_line_text_field",
			"value":     secret,
		}},
	}
	data, err := s.admin.Query(ctx, shop, accessToken, setSecretMutation, vars)
	if err != nil {
		return fmt.Errorf("set metafield: %w", err)
	}
	if userErr := data.Get("metafieldsSet.userErrors.0.message"); userErr.Exists() {
		return fmt.Errorf("set metafield: %s", userErr.String())
	}
	return nil
}

// Status reports whether a secret is configured without returning it.
func (s *MetafieldSecretStore) Status(ctx context.Context, shop string) (*models.SecretStatus, error) {
	m, err := s.fetch(ctx, shop)
	if err != nil {
		return nil, err
	}
	status := &models.SecretStatus{Shop: shop, Configured: m.exists && m.value != ""}
	if status.Configured && !m.updatedAt.IsZero() {
		t := m.updatedAt
		status.UpdatedAt = &t
	}
	return status, nil
}
