package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/correlation"
)

// Sequencer hands out per-partition sequence numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	mu       sync.Mutex
	ch       amqpChannel
	seq      Sequencer
	producer string
}

type PublisherOptions struct {
	Producer string
	// Sequencer is optional; without one events carry no sequence number.
	Sequencer Sequencer
}

func NewPublisher(conn *amqp.Connection, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, opts), nil
}

func newPublisher(ch amqpChannel, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = "cart-service"
	}
	return &Publisher{ch: ch, seq: opts.Sequencer, producer: producer}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Publish sends a cart event to the events exchange using the event type as
// routing key. The cart id is the partition key.
func (p *Publisher) Publish(ctx context.Context, ev cart.Event) error {
	spec, ok := cartEventSpecs[ev.Type]
	if !ok {
		return fmt.Errorf("unknown cart event type %q", ev.Type)
	}

	var seq int64
	if p.seq != nil {
		var err error
		seq, err = p.seq.NextSequence(ctx, ev.CartID)
		if err != nil {
			return fmt.Errorf("reserve sequence: %w", err)
		}
	}

	meta := EventMeta{
		CorrelationID: correlation.ID(ctx),
		CausationID:   middleware.GetReqID(ctx),
		PartitionKey:  ev.CartID,
	}
	env := newCartChangedEvent(spec, meta, seq, p.producer, ev)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", spec.name, err)
	}

	return p.publishJSON(ctx, string(ev.Type), body)
}

type EventMeta struct {
	CorrelationID string
	CausationID   string
	PartitionKey  string
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newCartChangedEvent(spec eventSpec, meta EventMeta, seq int64, producer string, ev cart.Event) CartChangedEvent {
	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return CartChangedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     spec.name,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        spec.schema,
		},
		Payload: CartChangedPayload{
			CartID:    ev.CartID,
			ProductID: ev.ProductID,
			Quantity:  ev.Quantity,
			Timestamp: occurredAt,
		},
	}
}
