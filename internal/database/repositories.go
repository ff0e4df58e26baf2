package database

import (
	"context"
	"time"

	"github.com/homula/shop-multipass/internal/models"
)

// SecretRepositoryInterface is a full secret backend: lookup, rotation and status.
type SecretRepositoryInterface interface {
	GetSecret(ctx context.Context, shop string) (string, error)
	SetSecret(ctx context.Context, shop, secret string) error
	Status(ctx context.Context, shop string) (*models.SecretStatus, error)
}

// LoginEventRepositoryInterface is what the worker needs to persist events.
type LoginEventRepositoryInterface interface {
	Insert(ctx context.Context, e *models.LoginEvent) error
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// Ensure concrete types implement the interfaces
var (
	_ SecretRepositoryInterface     = (*MultipassSecretRepository)(nil)
	_ LoginEventRepositoryInterface = (*LoginEventRepository)(nil)
)
