// Package activity publishes what happened in the storefront as events on a
// Kafka topic and reads them back for `skycart activity tail`.
package activity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	CartItemAdded       = "cart.item_added"
	CartItemRemoved     = "cart.item_removed"
	CartQuantityUpdated = "cart.quantity_updated"
	CartCleared         = "cart.cleared"

	SessionLoggedIn  = "session.logged_in"
	SessionLoggedOut = "session.logged_out"

	OrderPlaced        = "order.placed"
	OrderCancelled     = "order.cancelled"
	OrderStatusUpdated = "order.status_updated"
	PaymentFailed      = "payment.failed"

	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	ReviewSubmitted = "review.submitted"
	ReviewDeleted   = "review.deleted"

	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// Event is one activity record. Subject is the id of the thing it is about
// and doubles as the Kafka message key.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Actor   string          `json:"actor,omitempty"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// New builds an event with a fresh id. data may be nil.
func New(eventType, subject string, data any) (Event, error) {
	e := Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Subject: subject,
		At:      time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		e.Data = raw
	}
	return e, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event. It is the publisher when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Memory keeps published events in order.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types lists the published event types in order.
func (m *Memory) Types() []string {
	events := m.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
