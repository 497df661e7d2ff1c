package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()
	userID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: userID, Role: "user"},
			Data:          map[string]any{"order_id": orderID.String()},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, userID, envelope.Actor.UserID)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return errors.New("caller failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated}))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: "order_shipped"}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	dlq := NewDLQRepository(db)
	ctx := context.Background()

	first := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventPaymentCaptured, AggregateType: enums.AggregatePayment, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(db, first))
	require.NoError(t, repo.Insert(db, second))

	var fetched []models.OutboxEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 2)

	require.NoError(t, repo.MarkPublishedTx(db, first.ID))
	require.NoError(t, repo.MarkFailedTx(db, second.ID, errors.New("pubsub down")))

	pending, err := repo.CountPending()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	var failed models.OutboxEvent
	require.NoError(t, db.First(&failed, "id = ?", second.ID).Error)
	assert.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "pubsub down", *failed.LastError)

	msg := "max attempts"
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       second.ID,
		EventType:     second.EventType,
		AggregateType: second.AggregateType,
		AggregateID:   second.AggregateID,
		Payload:       second.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  3,
	}))
	require.NoError(t, repo.MarkTerminalTx(db, second.ID, errors.New("parked"), 3))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	assert.Empty(t, fetched, "terminal rows must not be fetched again")

	parked, err := dlq.FindByEventID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, parked)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, parked.ErrorReason)

	missing, err := dlq.FindByEventID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
