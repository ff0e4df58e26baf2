package queue

import (
	"context"
	"time"

	"github.com/homula/shop-multipass/internal/models"
)

// MessageInterface defines the interface for queue messages
// This enables mock implementations in worker tests
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *models.LoginEvent
	IsRedelivered() bool
}

// EventPublisher publishes login events.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.LoginEvent) error
}

// EventQueue is the interface for the login event queue
type EventQueue interface {
	EventPublisher

	// Consume returns a channel of messages from the queue.
	// The caller acknowledges each message. The channel closes when ctx is cancelled
	// or the connection is lost.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// Purger deletes records older than a retention period and reports how many were removed.
type Purger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
