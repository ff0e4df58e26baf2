package replay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "oauth:state:"

// DefaultStateTTL bounds how long an install flow may take.
const DefaultStateTTL = 10 * time.Minute

// ErrStateNotFound is returned for unknown, expired or already consumed nonces.
var ErrStateNotFound = errors.New("oauth state not found")

// StateStore keeps OAuth state nonces bound to the shop that started the flow.
type StateStore struct {
	client commander
	ttl    time.Duration
}

// NewStateStore creates a StateStore. ttl <= 0 uses DefaultStateTTL.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{client: client, ttl: ttl}
}

// Create generates a nonce for shop and stores it.
func (s *StateStore) Create(ctx context.Context, shop string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	ok, err := s.client.SetNX(ctx, oauthStatePrefix+nonce, shop, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("store state: nonce collision")
	}
	return nonce, nil
}

// Consume deletes the nonce and returns the shop it was issued for.
func (s *StateStore) Consume(ctx context.Context, nonce string) (string, error) {
	if nonce == "" {
		return "", ErrStateNotFound
	}
	shop, err := s.client.GetDel(ctx, oauthStatePrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume state: %w", err)
	}
	return shop, nil
}
