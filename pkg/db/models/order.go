package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/enums"
)

// Order records a single checkout attempt. TotalPrice is frozen at creation.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	TotalPrice decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'PENDING'"`
	Items      []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments   []Payment         `gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
