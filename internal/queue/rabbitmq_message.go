package queue

import (
	"github.com/homula/shop-multipass/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps a LoginEvent with its RabbitMQ delivery information
type Message struct {
	Event       *models.LoginEvent
	DeliveryTag uint64
	Redelivered bool
	Channel     *amqp.Channel
}

// Ack acknowledges the message
func (m *Message) Ack() error {
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack negatively acknowledges the message
func (m *Message) Nack(requeue bool) error {
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

// GetEvent returns the wrapped event.
func (m *Message) GetEvent() *models.LoginEvent {
	return m.Event
}

// IsRedelivered reports whether the broker delivered this message before.
func (m *Message) IsRedelivered() bool {
	return m.Redelivered
}
