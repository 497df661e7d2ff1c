package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/enums"
)

// Payment tracks money movement for one order. Amount is in major units.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index:payments_order_id_idx"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method_enum;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status_enum;not null"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id;index:payments_gateway_order_id_idx"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	GatewaySignature *string             `gorm:"column:gateway_signature"`
	Receipt          *string             `gorm:"column:receipt"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
