package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const usedTokenPrefix = "multipass:used:"

// Guard records consumed token digests in Redis.
type Guard struct {
	client commander
}

// NewGuard creates a Guard on the given client.
func NewGuard(client *redis.Client) *Guard {
	return &Guard{client: client}
}

// MarkUsed records digest for ttl and reports whether this was its first use.
func (g *Guard) MarkUsed(ctx context.Context, digest string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("mark used: ttl must be positive")
	}
	first, err := g.client.SetNX(ctx, usedTokenPrefix+digest, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark used: %w", err)
	}
	return first, nil
}
