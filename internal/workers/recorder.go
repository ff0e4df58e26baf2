package workers

import (
	"context"
	"fmt"

	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/queue"
	"go.uber.org/zap"
)

// EventStore persists login events.
type EventStore interface {
	Insert(ctx context.Context, event *models.LoginEvent) error
}

// EventRecorder stores login events consumed from the queue
type EventRecorder struct {
	store EventStore
	log   *zap.Logger
}

// NewEventRecorder creates a new event recorder
func NewEventRecorder(store EventStore, log *zap.Logger) *EventRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventRecorder{store: store, log: log}
}

// ProcessMessage stores the message's event and acknowledges it.
// A failed insert is requeued once; a second failure dead-letters the message.
func (r *EventRecorder) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()
	if event == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.log.Warn("failed_to_nack_empty_message", zap.Error(nackErr))
		}
		return fmt.Errorf("message has no event")
	}

	switch event.Type {
	case models.LoginEventTokenIssued, models.LoginEventVerificationFailed:
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // unknown type, send to DLQ
			r.log.Warn("failed_to_nack_unknown_event_type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err := r.store.Insert(ctx, event); err != nil {
		requeue := !msg.IsRedelivered()
		if nackErr := msg.Nack(requeue); nackErr != nil {
			r.log.Warn("failed_to_nack_event", zap.Error(nackErr))
		}
		return fmt.Errorf("record event %s (requeued=%t): %w", event.ID, requeue, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack event: %w", ackErr)
	}

	r.log.Debug("recorded_login_event",
		zap.String("event_id", event.ID.String()),
		zap.String("type", string(event.Type)),
	)
	return nil
}

// Run processes messages until ctx is cancelled or msgs is closed.
func (r *EventRecorder) Run(ctx context.Context, msgs <-chan *queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				r.log.Info("message_channel_closed")
				return
			}
			if err := r.ProcessMessage(ctx, msg); err != nil {
				r.log.Error("failed_to_process_event", zap.Error(err))
			}
		}
	}
}
