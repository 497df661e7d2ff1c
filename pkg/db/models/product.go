package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Prices are stored in major currency units.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string           `gorm:"column:sku;not null;uniqueIndex:products_sku_key"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	MOQ         int              `gorm:"column:moq;not null;default:1"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
