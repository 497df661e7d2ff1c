package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/money"
)

// Repository is the only writer of orders, order items, payments and the
// post-checkout cart purge.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrderWithItems(ctx context.Context, userID uuid.UUID, lines []LineItem, status enums.OrderStatus) (*models.Order, error)
	CreatePayment(ctx context.Context, input PaymentInput) (*models.Payment, error)
	UpdateOrderAndPaymentStatus(ctx context.Context, gatewayOrderRef string, orderStatus enums.OrderStatus, paymentStatus enums.PaymentStatus, refs *CallbackRefs) (*StatusUpdate, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	ClearCartForUser(ctx context.Context, userID uuid.UUID) error
	FindPaymentsByGatewayOrder(ctx context.Context, gatewayOrderRef string) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, msg)
}

// OrderTotal sums quantity × unit price over lines, in major units.
func OrderTotal(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(money.LineTotal(line.UnitPrice, line.Quantity))
	}
	return money.Round(total)
}

func (r *repository) CreateOrderWithItems(ctx context.Context, userID uuid.UUID, lines []LineItem, status enums.OrderStatus) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	for _, line := range lines {
		if line.ProductID == uuid.Nil || line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order line item")
		}
	}

	order := &models.Order{
		ID:         uuid.New(),
		UserID:     userID,
		TotalPrice: OrderTotal(lines),
		Status:     status,
	}
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Price:     money.Round(line.UnitPrice),
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, persistence(err, "create order")
	}
	order.Items = items
	return order, nil
}

func (r *repository) CreatePayment(ctx context.Context, input PaymentInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", input.Status))
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must not be negative")
	}

	payment := &models.Payment{
		ID:             uuid.New(),
		OrderID:        input.OrderID,
		UserID:         input.UserID,
		Amount:         money.Round(input.Amount),
		Method:         input.Method,
		Status:         input.Status,
		GatewayOrderID: input.GatewayOrderID,
		Receipt:        input.Receipt,
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, persistence(err, "create payment")
	}
	return payment, nil
}

func (r *repository) FindPaymentsByGatewayOrder(ctx context.Context, gatewayOrderRef string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderRef).
		Order("created_at ASC").
		Order("id ASC").
		Find(&payments).Error; err != nil {
		return nil, persistence(err, "find payments")
	}
	return payments, nil
}

// UpdateOrderAndPaymentStatus moves the first payment matching the gateway
// order and its parent order together. A payment that is already CAPTURED or
// REFUNDED is never moved to a different status.
func (r *repository) UpdateOrderAndPaymentStatus(
	ctx context.Context,
	gatewayOrderRef string,
	orderStatus enums.OrderStatus,
	paymentStatus enums.PaymentStatus,
	refs *CallbackRefs,
) (*StatusUpdate, error) {
	if gatewayOrderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order reference is required")
	}
	if !orderStatus.IsValid() || !paymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var result *StatusUpdate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payments []models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gateway_order_id = ?", gatewayOrderRef).
			Order("created_at ASC").
			Order("id ASC").
			Find(&payments).Error; err != nil {
			return err
		}
		if len(payments) == 0 {
			return pkgerrors.New(pkgerrors.CodeReconcileNotFound, "no payment found for gateway order")
		}

		payment := payments[0]
		result = &StatusUpdate{Payment: payment, PreviousStatus: payment.Status, Matches: len(payments)}

		if payment.Status.IsTerminal() && payment.Status != paymentStatus {
			var order models.Order
			if err := tx.Select("status").Where("id = ?", payment.OrderID).First(&order).Error; err != nil {
				return err
			}
			result.OrderStatus = order.Status
			return nil
		}

		updates := map[string]any{"status": paymentStatus}
		if refs != nil {
			updates["gateway_payment_id"] = refs.GatewayPaymentID
			updates["gateway_signature"] = refs.Signature
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).Update("status", orderStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("payment references a missing order")
		}

		result.Payment.Status = paymentStatus
		if refs != nil {
			paymentID, signature := refs.GatewayPaymentID, refs.Signature
			result.Payment.GatewayPaymentID = &paymentID
			result.Payment.GatewaySignature = &signature
		}
		result.OrderStatus = orderStatus
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, persistence(err, "update order and payment status")
	}
	return result, nil
}

// ClearCart deletes every item of the cart. Clearing an empty cart is a no-op.
func (r *repository) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
	return persistence(err, "clear cart")
}

// ClearCartForUser clears the user's cart if one exists.
func (r *repository) ClearCartForUser(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	conn := r.db.WithContext(ctx)
	err := conn.
		Where("cart_id IN (?)", conn.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
	return persistence(err, "clear cart for user")
}
