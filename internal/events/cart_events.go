package events

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/cart"
)

type eventSpec struct {
	name   string
	schema string
}

var cartEventSpecs = map[cart.EventType]eventSpec{
	cart.EventCartCreated: {name: "CartCreated", schema: "contracts/events/cart/CartCreated.v1.payload.schema.json"},
	cart.EventItemAdded:   {name: "CartItemAdded", schema: "contracts/events/cart/CartItemAdded.v1.payload.schema.json"},
	cart.EventItemUpdated: {name: "CartItemUpdated", schema: "contracts/events/cart/CartItemUpdated.v1.payload.schema.json"},
	cart.EventItemRemoved: {name: "CartItemRemoved", schema: "contracts/events/cart/CartItemRemoved.v1.payload.schema.json"},
	cart.EventCartDeleted: {name: "CartDeleted", schema: "contracts/events/cart/CartDeleted.v1.payload.schema.json"},
}

type CartChangedPayload struct {
	CartID    string    `json:"cartId"`
	ProductID string    `json:"productId,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CartChangedEvent struct {
	EventEnvelope
	Payload CartChangedPayload `json:"payload"`
}
