package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/pkg/config"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type: the aggregate it must belong to,
// the topic it is published on and the payload type it decodes into.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry resolves outbox rows for the order and payment events.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never be published as stored;
// the publisher dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func payloadOf[T any]() func() interface{} {
	return func() interface{} { return new(T) }
}

// NewEventRegistry routes every order and payment event to the orders
// topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, 3)}
	reg.add(enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic, payloadOf[payloads.OrderCreatedEvent]())
	reg.add(enums.EventPaymentCaptured, enums.AggregatePayment, cfg.OrdersTopic, payloadOf[payloads.PaymentStatusEvent]())
	reg.add(enums.EventPaymentFailed, enums.AggregatePayment, cfg.OrdersTopic, payloadOf[payloads.PaymentStatusEvent]())
	return reg, nil
}

func (r *EventRegistry) add(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string, factory func() interface{}) {
	r.entries[eventType] = EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: factory,
	}
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
