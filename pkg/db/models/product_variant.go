package models

import "github.com/google/uuid"

// ProductVariant is a color option with its own stock count.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:product_variants_product_id_idx"`
	Color     string    `gorm:"column:color;not null"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
}
