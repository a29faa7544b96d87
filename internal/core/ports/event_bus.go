package ports

import (
	"FlashGrade/internal/core/domain"
	"context"
)

// Topics published on the in-process bus.
const (
	TopicOrderCreated          = "order.created"
	TopicOrderPaid             = "order.paid"
	TopicOrderStatusChanged    = "order.status_changed"
	TopicSupportMessageCreated = "support.message_created"
)

// Event is a generic wrapper for any event payload
type Event struct {
	Topic string
	Data  interface{}
}

// OrderEvent is the payload of every order.* topic.
type OrderEvent struct {
	Order      *domain.Order
	PrevStatus domain.OrderStatus
	Source     string // wizard, admin, relay, api
}

// SupportEvent is the payload of support.message_created.
type SupportEvent struct {
	Message *domain.SupportMessage
}

// EventHandler is a function that can handle a specific event
type EventHandler func(ctx context.Context, event Event) error

// EventBus defines the interface for our in-process pub/sub system
type EventBus interface {
	// Publish sends an event to all subscribers of a topic
	Publish(ctx context.Context, topic string, data interface{}) error

	// Subscribe registers a handler for a specific topic
	Subscribe(topic string, handler EventHandler)
}
