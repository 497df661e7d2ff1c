package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/enums"
)

// OrderCreatedEvent is emitted for every persisted checkout order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
}

// PaymentStatusEvent reports a payment reaching CAPTURED or FAILED.
type PaymentStatusEvent struct {
	PaymentID        uuid.UUID           `json:"payment_id"`
	OrderID          uuid.UUID           `json:"order_id"`
	UserID           uuid.UUID           `json:"user_id"`
	Amount           decimal.Decimal     `json:"amount"`
	Method           enums.PaymentMethod `json:"method"`
	Status           enums.PaymentStatus `json:"status"`
	GatewayOrderID   string              `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string              `json:"gateway_payment_id,omitempty"`
}
