// Package realtime carries backend push events to the owner client.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/pkg/rabbitmq"

	log "github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// EventNewOrder is the only event type the backend emits today.
const EventNewOrder = "new_order"

// Event is one message on the owner feed.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userID"`
	OrderID   string    `json:"orderID,omitempty"`
	Number    string    `json:"number,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Handler receives decoded events. It runs on the consumer goroutine.
type Handler func(Event)

// Subscription is a live feed; Cancel stops it.
type Subscription interface {
	Cancel() error
}

// RoutingKey is the key new-order events for userID are published under.
func RoutingKey(eventType, userID string) string {
	return eventType + "." + userID
}

// Decode parses a delivery body into an Event.
func Decode(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return ev, nil
}

// Feed subscribes to and publishes owner events over RabbitMQ.
type Feed struct {
	mq *rabbitmq.Client
}

// NewFeed wraps a connected RabbitMQ client.
func NewFeed(mq *rabbitmq.Client) *Feed {
	return &Feed{mq: mq}
}

// Subscribe delivers new-order events for userID to h until the returned
// subscription is cancelled or ctx is done.
func (f *Feed) Subscribe(ctx context.Context, userID string, h Handler) (Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("subscribe: userID is required")
	}
	key := RoutingKey(EventNewOrder, userID)
	consumer, err := f.mq.Consume(ctx, key, func(msg amqp.Delivery) error {
		ev, err := Decode(msg.Body)
		if err != nil {
			return err
		}
		h(ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", key, err)
	}
	log.WithField("user_id", userID).Info("Subscribed to new order events")
	return consumer, nil
}

// PublishNewOrder announces a freshly placed order to its restaurant.
func (f *Feed) PublishNewOrder(order models.Order) error {
	ev := Event{
		Type:      EventNewOrder,
		UserID:    order.OwnerID,
		OrderID:   order.ID,
		Number:    order.Number,
		CreatedAt: order.CreatedAt,
	}
	return f.mq.PublishJSON(RoutingKey(EventNewOrder, order.OwnerID), ev)
}
