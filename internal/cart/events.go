package cart

import (
	"context"
	"time"
)

type EventType string

const (
	EventCartCreated EventType = "cart.created.v1"
	EventItemAdded   EventType = "cart.item.added.v1"
	EventItemUpdated EventType = "cart.item.updated.v1"
	EventItemRemoved EventType = "cart.item.removed.v1"
	EventCartDeleted EventType = "cart.deleted.v1"
)

// Event describes a committed change to a cart. ProductID and Quantity are
// empty for cart level events; Quantity is the item's resulting quantity.
type Event struct {
	Type       EventType
	CartID     string
	ProductID  string
	Quantity   int
	OccurredAt time.Time
}

type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
