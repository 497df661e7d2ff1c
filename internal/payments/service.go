package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/internal/ledger"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/gateway"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/metrics"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/wholesale-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type callbackGuard interface {
	Acquire(ctx context.Context, id string) (redis.Release, error)
}

// Result is the outcome of one reconciliation callback.
type Result struct {
	Success     bool
	Payment     *models.Payment
	OrderStatus enums.OrderStatus
	Err         *pkgerrors.Error
}

// Outcome is the metric label for the result.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	if r.Err == nil {
		return string(pkgerrors.CodeInternal)
	}
	return string(r.Err.Code())
}

// Service reconciles gateway callbacks against local payments.
type Service interface {
	VerifyPayment(ctx context.Context, userID uuid.UUID, gatewayOrderRef, gatewayPaymentRef, signature string) Result
}

// ServiceParams groups reconciliation dependencies. Guard is optional.
type ServiceParams struct {
	Tx            txRunner
	Ledger        ledger.Repository
	Outbox        outbox.Emitter
	GatewaySecret string
	Guard         callbackGuard
	Metrics       *metrics.ReconciliationMetrics
	Logger        *logger.Logger
}

type service struct {
	tx      txRunner
	ledger  ledger.Repository
	outbox  outbox.Emitter
	secret  string
	guard   callbackGuard
	metrics *metrics.ReconciliationMetrics
	logg    *logger.Logger
}

// NewService builds the reconciliation service. A blank secret is allowed;
// every callback then fails with GATEWAY_UNAVAILABLE.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	guard := params.Guard
	if g, ok := guard.(*redis.KeyedLock); ok && g == nil {
		guard = nil
	}
	return &service{
		tx:      params.Tx,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		secret:  strings.TrimSpace(params.GatewaySecret),
		guard:   guard,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func fail(err error) Result {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reconciliation failed")
	}
	return Result{Err: typed}
}

// VerifyPayment checks the callback signature and moves the matching order and
// payment to DELIVERED/CAPTURED or FAILED/FAILED together. The payment must
// belong to userID; someone else's payment is reported as not found.
func (s *service) VerifyPayment(ctx context.Context, userID uuid.UUID, gatewayOrderRef, gatewayPaymentRef, signature string) (res Result) {
	gatewayOrderRef = strings.TrimSpace(gatewayOrderRef)
	gatewayPaymentRef = strings.TrimSpace(gatewayPaymentRef)
	ctx = s.logg.WithGatewayOrderID(ctx, gatewayOrderRef)
	ctx = s.logg.WithField(ctx, "gateway_payment_id", gatewayPaymentRef)

	defer func() {
		if r := recover(); r != nil {
			res = fail(pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("reconciliation panic: %v", r)))
		}
		s.metrics.Inc(res.Outcome())
		s.logResult(ctx, res)
	}()

	if s.secret == "" {
		return fail(pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway secret is not configured"))
	}
	if userID == uuid.Nil {
		return fail(pkgerrors.New(pkgerrors.CodeValidation, "user id is required"))
	}
	if gatewayOrderRef == "" || gatewayPaymentRef == "" {
		return fail(pkgerrors.New(pkgerrors.CodeValidation, "gateway order and payment references are required"))
	}

	release, err := s.acquire(ctx, gatewayPaymentRef)
	if err != nil {
		return fail(err)
	}
	defer release()

	matches, err := s.ledger.FindPaymentsByGatewayOrder(ctx, gatewayOrderRef)
	if err != nil {
		return fail(err)
	}
	if len(matches) == 0 || matches[0].UserID != userID {
		return fail(pkgerrors.New(pkgerrors.CodeReconcileNotFound, "no payment found for gateway order"))
	}
	if len(matches) > 1 {
		s.logg.Warn(s.logg.WithField(ctx, "payment_matches", len(matches)), "multiple payments share one gateway order, reconciling the first")
	}

	if gateway.VerifySignature(s.secret, gatewayOrderRef, gatewayPaymentRef, signature) {
		return s.capture(ctx, gatewayOrderRef, gatewayPaymentRef, signature)
	}
	return s.reject(ctx, gatewayOrderRef)
}

func (s *service) capture(ctx context.Context, orderRef, paymentRef, signature string) Result {
	var update *ledger.StatusUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)

		var err error
		update, err = led.UpdateOrderAndPaymentStatus(ctx, orderRef,
			enums.OrderStatusDelivered, enums.PaymentStatusCaptured,
			&ledger.CallbackRefs{GatewayPaymentID: paymentRef, Signature: signature})
		if err != nil {
			return err
		}
		if !update.Applied || update.PreviousStatus == enums.PaymentStatusCaptured {
			return nil
		}
		if err := led.ClearCartForUser(ctx, update.Payment.UserID); err != nil {
			return err
		}
		return s.emitStatus(ctx, tx, update, enums.EventPaymentCaptured)
	})
	if err != nil {
		return fail(err)
	}

	payment := update.Payment
	if payment.Status != enums.PaymentStatusCaptured {
		return Result{
			Payment:     &payment,
			OrderStatus: update.OrderStatus,
			Err:         pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is already %s", payment.Status)),
		}
	}
	return Result{Success: true, Payment: &payment, OrderStatus: update.OrderStatus}
}

func (s *service) reject(ctx context.Context, orderRef string) Result {
	var update *ledger.StatusUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		update, err = s.ledger.WithTx(tx).UpdateOrderAndPaymentStatus(ctx, orderRef,
			enums.OrderStatusFailed, enums.PaymentStatusFailed, nil)
		if err != nil {
			return err
		}
		if !update.Applied || update.PreviousStatus == enums.PaymentStatusFailed {
			return nil
		}
		return s.emitStatus(ctx, tx, update, enums.EventPaymentFailed)
	})
	if err != nil {
		return fail(err)
	}

	payment := update.Payment
	return Result{
		Payment:     &payment,
		OrderStatus: update.OrderStatus,
		Err:         pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature mismatch"),
	}
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, update *ledger.StatusUpdate, eventType enums.OutboxEventType) error {
	p := update.Payment
	event := payloads.PaymentStatusEvent{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Method:    p.Method,
		Status:    p.Status,
	}
	if p.GatewayOrderID != nil {
		event.GatewayOrderID = *p.GatewayOrderID
	}
	if p.GatewayPaymentID != nil {
		event.GatewayPaymentID = *p.GatewayPaymentID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   p.ID,
		Actor:         &outbox.ActorRef{UserID: p.UserID, Role: string(enums.RoleUser)},
		Data:          event,
	})
}

func (s *service) acquire(ctx context.Context, paymentRef string) (func(), error) {
	noop := func() {}
	if s.guard == nil {
		return noop, nil
	}
	release, err := s.guard.Acquire(ctx, paymentRef)
	if errors.Is(err, redis.ErrLockHeld) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment verification already in progress")
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback guard unavailable, continuing without it")
		return noop, nil
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback guard release failed")
		}
	}, nil
}

func (s *service) logResult(ctx context.Context, res Result) {
	ctx = s.logg.WithField(ctx, "reconcile_outcome", res.Outcome())
	if p := res.Payment; p != nil {
		ctx = s.logg.WithOrderID(ctx, p.OrderID.String())
		ctx = s.logg.WithUserID(ctx, p.UserID.String())
		ctx = s.logg.WithField(ctx, "payment_status", string(p.Status))
	}

	switch {
	case res.Success:
		s.logg.Info(ctx, "payment reconciled")
	case res.Err != nil && pkgerrors.IsRetryable(res.Err):
		s.logg.Error(ctx, "payment reconciliation failed", res.Err)
	default:
		s.logg.Warn(ctx, "payment reconciliation rejected")
	}
}
