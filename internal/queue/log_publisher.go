package queue

import (
	"context"

	"github.com/homula/shop-multipass/internal/models"
	"go.uber.org/zap"
)

// LogPublisher writes events to the log instead of a broker. Used when RabbitMQ is not configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *models.LoginEvent) error {
	p.log.Info("login_event",
		zap.String("event_id", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.String("shop", event.Shop),
		zap.String("email_hash", event.EmailHash),
		zap.String("reason", event.Reason),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
