package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType is the entity an outbox event describes. Subscribers
// key their dedupe state on (aggregate_type, aggregate_id).
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains([]OutboxAggregateType{AggregateOrder, AggregatePayment}, a)
}

// OutboxEventType is the event_type column of outbox rows and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	// EventOrderCreated fires once per placed order, cash or online.
	EventOrderCreated OutboxEventType = "order_created"
	// EventPaymentCaptured and EventPaymentFailed fire when an online
	// payment is reconciled.
	EventPaymentCaptured OutboxEventType = "payment_captured"
	EventPaymentFailed   OutboxEventType = "payment_failed"
)

var outboxEventTypes = []OutboxEventType{EventOrderCreated, EventPaymentCaptured, EventPaymentFailed}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(outboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
