package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
)

// LineItem is one priced cart line frozen into an order.
type LineItem struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PaymentInput describes a payment row to insert.
type PaymentInput struct {
	OrderID        uuid.UUID
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Method         enums.PaymentMethod
	Status         enums.PaymentStatus
	GatewayOrderID *string
	Receipt        *string
}

// CallbackRefs are the gateway identifiers recorded when a callback is
// accepted.
type CallbackRefs struct {
	GatewayPaymentID string
	Signature        string
}

// StatusUpdate reports the outcome of UpdateOrderAndPaymentStatus. Applied
// is false when the payment was already terminal and was left untouched.
type StatusUpdate struct {
	Payment        models.Payment
	PreviousStatus enums.PaymentStatus
	OrderStatus    enums.OrderStatus
	Matches        int
	Applied        bool
}
