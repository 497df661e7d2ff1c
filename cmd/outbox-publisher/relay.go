package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox/registry"
)

// outcome is what happened to a single outbox row during a relay pass.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

// delivery carries one row through the relay.
type delivery struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	err      error
	reason   enums.OutboxDLQErrorReason
}

func (d *delivery) topic() string {
	if d.resolved == nil {
		return ""
	}
	return d.resolved.Descriptor.Topic
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		for _, event := range events {
			d := &delivery{event: event}
			if err := s.record(ctx, tx, d, s.relay(ctx, d)); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// relay decodes and publishes one row and classifies the result.
func (s *Service) relay(ctx context.Context, d *delivery) outcome {
	resolved, err := s.registry.Resolve(d.event)
	if err != nil {
		d.err, d.reason = err, enums.OutboxDLQReasonNonRetryable
		return outcomeDeadLetter
	}
	d.resolved = resolved

	err = s.publish(ctx, d)
	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		return outcomePublished
	case errors.As(err, &nonRetryable):
		d.err, d.reason = err, enums.OutboxDLQReasonNonRetryable
		return outcomeDeadLetter
	case d.event.AttemptCount+1 >= s.maxAttempts:
		d.err, d.reason = fmt.Errorf("max publish attempts reached: %w", err), enums.OutboxDLQReasonMaxAttempts
		return outcomeDeadLetter
	default:
		d.err = err
		return outcomeRetry
	}
}

// record persists the outcome of a relay on the claimed row.
func (s *Service) record(ctx context.Context, tx *gorm.DB, d *delivery, result outcome) error {
	eventType := string(d.event.EventType)
	logCtx := s.logg.WithFields(ctx, s.deliveryFields(d))

	switch result {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, d.event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", d.event.ID, err)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Info(logCtx, "outbox event published")

	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", d.err.Error()), "outbox publish failed")
		s.metrics.IncFailed(eventType)
		if err := s.repo.MarkFailedTx(tx, d.event.ID, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", d.event.ID, err)
		}

	case outcomeDeadLetter:
		logCtx = s.logg.WithField(logCtx, "error_reason", d.reason)
		s.logg.Warn(s.logg.WithField(logCtx, "error", d.err.Error()), "outbox event dead-lettered")
		msg := d.err.Error()
		entry := models.OutboxDLQ{
			EventID:       d.event.ID,
			EventType:     d.event.EventType,
			AggregateType: d.event.AggregateType,
			AggregateID:   d.event.AggregateID,
			Payload:       d.event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &msg,
			AttemptCount:  d.event.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", d.event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, d.event.ID, d.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", d.event.ID, err)
		}
		s.metrics.IncDeadLettered(eventType)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, d *delivery) error {
	topic := d.topic()
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, &gcppubsub.Message{Data: d.event.Payload, Attributes: messageAttributes(d)})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// messageAttributes lets subscribers route on the event without decoding
// the envelope.
func messageAttributes(d *delivery) map[string]string {
	return map[string]string{
		"event_id":       d.resolved.Envelope.EventID,
		"event_type":     string(d.event.EventType),
		"aggregate_type": string(d.event.AggregateType),
		"aggregate_id":   d.event.AggregateID.String(),
		"created_at":     d.event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Service) deliveryFields(d *delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      d.event.ID.String(),
		"event_type":     d.event.EventType,
		"aggregate_type": d.event.AggregateType,
		"aggregate_id":   d.event.AggregateID.String(),
		"attempt_count":  d.event.AttemptCount,
	}
	if d.resolved != nil {
		fields["topic"] = d.resolved.Descriptor.Topic
		if env := d.resolved.Envelope; env.EventID != "" {
			fields["event_id"] = env.EventID
			fields["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
		}
	}
	if d.event.LastError != nil {
		fields["last_error"] = *d.event.LastError
	}
	return fields
}
