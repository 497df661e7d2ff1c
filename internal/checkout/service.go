package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/internal/cart"
	"github.com/angelmondragon/wholesale-backend/internal/ledger"
	"github.com/angelmondragon/wholesale-backend/pkg/config"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/gateway"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/metrics"
	"github.com/angelmondragon/wholesale-backend/pkg/money"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/wholesale-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway opens remote payment orders.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error)
}

type userLock interface {
	Acquire(ctx context.Context, id string) (redis.Release, error)
}

// Service executes checkout attempts.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) Result
}

// ServiceParams groups checkout dependencies. Gateway and Lock are optional:
// without a gateway only cash checkout is offered, without a lock attempts by
// the same user are not serialized.
type ServiceParams struct {
	Tx            txRunner
	Carts         *cart.Repository
	Ledger        ledger.Repository
	Outbox        outbox.Emitter
	Gateway       Gateway
	GatewayConfig config.GatewayConfig
	Lock          userLock
	Metrics       *metrics.CheckoutMetrics
	Logger        *logger.Logger
}

type service struct {
	tx      txRunner
	carts   *cart.Repository
	ledger  ledger.Repository
	outbox  outbox.Emitter
	gateway Gateway
	gwCfg   config.GatewayConfig
	lock    userLock
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
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
	gw := params.Gateway
	if client, ok := gw.(*gateway.Client); ok && client == nil {
		gw = nil
	}
	lock := params.Lock
	if l, ok := lock.(*redis.KeyedLock); ok && l == nil {
		lock = nil
	}
	return &service{
		tx:      params.Tx,
		carts:   params.Carts,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		gateway: gw,
		gwCfg:   params.GatewayConfig,
		lock:    lock,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Checkout turns the user's cart into an order. It always returns a Result;
// failures are reported through Result.Err.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (res Result) {
	started := time.Now()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":        userID.String(),
		"payment_method": string(method),
	})

	defer func() {
		if r := recover(); r != nil {
			res = failed(res.State, pkgerrors.New(pkgerrors.CodeCheckoutFailed, fmt.Sprintf("checkout panic: %v", r)))
		}
		s.metrics.Observe(string(method), res.Outcome(), time.Since(started))
		s.logResult(ctx, res)
	}()

	if userID == uuid.Nil {
		return failed(StateStarted, pkgerrors.New(pkgerrors.CodeValidation, "user id is required"))
	}
	if !method.IsValid() {
		return failed(StateStarted, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method)))
	}

	release, err := s.acquire(ctx, userID)
	if err != nil {
		return failed(StateStarted, err)
	}
	defer release()

	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return failed(StateStarted, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "load cart"))
	}
	if snap.IsEmpty() {
		return failed(StateCartLoaded, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"))
	}

	total := snap.Total()

	switch method {
	case enums.PaymentMethodCash:
		return s.checkoutCash(ctx, userID, total)
	default:
		return s.checkoutOnline(ctx, userID, total)
	}
}

func (s *service) acquire(ctx context.Context, userID uuid.UUID) (func(), error) {
	noop := func() {}
	if s.lock == nil {
		return noop, nil
	}
	release, err := s.lock.Acquire(ctx, userID.String())
	if errors.Is(err, redis.ErrLockHeld) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout lock unavailable, continuing without it")
		return noop, nil
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout lock release failed")
		}
	}, nil
}

func (s *service) checkoutCash(ctx context.Context, userID uuid.UUID, total decimal.Decimal) Result {
	var order *models.Order
	var payment *models.Payment

	state := StateTotalComputed
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)

		current, lines, err := s.reloadCart(ctx, tx, userID, total)
		if err != nil {
			return err
		}

		order, err = led.CreateOrderWithItems(ctx, userID, lines, enums.OrderStatusDelivered)
		if err != nil {
			return err
		}
		state = StateOrderCreated
		payment, err = led.CreatePayment(ctx, ledger.PaymentInput{
			OrderID: order.ID,
			UserID:  userID,
			Amount:  order.TotalPrice,
			Method:  enums.PaymentMethodCash,
			Status:  enums.PaymentStatusCaptured,
		})
		if err != nil {
			return err
		}
		if err := led.ClearCart(ctx, current.Cart.ID); err != nil {
			return err
		}

		if err := s.emitOrderCreated(ctx, tx, order, enums.PaymentMethodCash); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.RoleUser)},
			Data: payloads.PaymentStatusEvent{
				PaymentID: payment.ID,
				OrderID:   order.ID,
				UserID:    userID,
				Amount:    payment.Amount,
				Method:    payment.Method,
				Status:    payment.Status,
			},
		})
	})
	if err != nil {
		return failed(state, checkoutError(err))
	}

	return Result{
		Success: true,
		State:   StateComplete,
		Order:   order,
		Payment: payment,
	}
}

func (s *service) checkoutOnline(ctx context.Context, userID uuid.UUID, total decimal.Decimal) Result {
	if s.gateway == nil {
		return failed(StateTotalComputed, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "online payment gateway is not configured"))
	}

	amountMinor := money.ToMinor(total)
	if limit := s.gwCfg.MaxAmountMinor; limit > 0 && amountMinor > limit {
		return failed(StateTotalComputed, pkgerrors.New(
			pkgerrors.CodeAmountLimitExceeded,
			fmt.Sprintf("amount %s exceeds the online payment limit of %s", money.Format(total, s.gwCfg.Currency), money.Format(money.FromMinor(limit), s.gwCfg.Currency)),
		).WithDetails(map[string]any{
			"amount_minor": amountMinor,
			"limit_minor":  limit,
		}))
	}

	var (
		order   *models.Order
		payment *models.Payment
		remote  *gateway.Order
	)
	state := StateTotalComputed
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)

		_, lines, err := s.reloadCart(ctx, tx, userID, total)
		if err != nil {
			return err
		}

		order, err = led.CreateOrderWithItems(ctx, userID, lines, enums.OrderStatusPending)
		if err != nil {
			return err
		}
		state = StateOrderCreated

		receipt := Receipt(s.gwCfg.ReceiptPrefix, order.ID)
		remote, err = s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
			Amount:   amountMinor,
			Currency: s.gwCfg.Currency,
			Receipt:  receipt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "create gateway order")
		}

		gatewayOrderID := remote.ID
		payment, err = led.CreatePayment(ctx, ledger.PaymentInput{
			OrderID:        order.ID,
			UserID:         userID,
			Amount:         order.TotalPrice,
			Method:         enums.PaymentMethodOnline,
			Status:         enums.PaymentStatusCreated,
			GatewayOrderID: &gatewayOrderID,
			Receipt:        &receipt,
		})
		if err != nil {
			return err
		}
		return s.emitOrderCreated(ctx, tx, order, enums.PaymentMethodOnline)
	})
	if err != nil {
		return failed(state, checkoutError(err))
	}

	currency := remote.Currency
	if currency == "" {
		currency = s.gwCfg.Currency
	}
	return Result{
		Success: true,
		State:   StateAwaitingGateway,
		Order:   order,
		Payment: payment,
		GatewayOrder: &GatewayOrder{
			KeyID:    s.gateway.KeyID(),
			OrderID:  remote.ID,
			Amount:   amountMinor,
			Currency: currency,
			Receipt:  *payment.Receipt,
		},
	}
}

// reloadCart re-reads the cart under a row lock inside the checkout
// transaction. The cart must still be non-empty and still add up to the total
// computed before the transaction began.
func (s *service) reloadCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID, total decimal.Decimal) (cart.Snapshot, []ledger.LineItem, error) {
	current, err := s.carts.WithTx(tx).SnapshotForUpdate(ctx, userID)
	if err != nil {
		return cart.Snapshot{}, nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload cart")
	}
	if current.IsEmpty() {
		return cart.Snapshot{}, nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	if !current.Total().Equal(total) {
		return cart.Snapshot{}, nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, please retry")
	}

	lines := make([]ledger.LineItem, 0, len(current.Items))
	for _, item := range current.Items {
		lines = append(lines, ledger.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return current, lines, nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, method enums.PaymentMethod) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.RoleUser)},
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			TotalPrice:    order.TotalPrice,
			Status:        order.Status,
			PaymentMethod: method,
			ItemCount:     len(order.Items),
		},
	})
}

func (s *service) logResult(ctx context.Context, res Result) {
	fields := map[string]any{
		"checkout_state":   string(res.State),
		"checkout_outcome": res.Outcome(),
	}
	ctx = s.logg.WithFields(ctx, fields)
	if res.Order != nil {
		ctx = s.logg.WithOrderID(ctx, res.Order.ID.String())
	}
	if res.GatewayOrder != nil {
		ctx = s.logg.WithGatewayOrderID(ctx, res.GatewayOrder.OrderID)
	}

	switch {
	case res.Success:
		s.logg.Info(ctx, "checkout completed")
	case res.Err != nil && pkgerrors.IsRetryable(res.Err):
		s.logg.Error(ctx, "checkout failed", res.Err)
	default:
		s.logg.Warn(ctx, "checkout rejected")
	}
}

// Receipt derives the gateway receipt label from the local order id. The id
// is written without dashes to stay inside gateway receipt length limits.
func Receipt(prefix string, orderID uuid.UUID) string {
	return prefix + strings.ReplaceAll(orderID.String(), "-", "")
}

// checkoutError keeps the business codes raised inside the transaction and
// reports everything else as CHECKOUT_FAILED.
func checkoutError(err error) error {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeEmptyCart, pkgerrors.CodeConflict, pkgerrors.CodeGatewayUnavailable:
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "checkout failed")
}
