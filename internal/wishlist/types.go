package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
)

// ProductSummary is the catalog slice shown on a wishlist row.
type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	MOQ      int             `json:"moq"`
	IsActive bool            `json:"is_active"`
}

// ItemDTO wraps the product summary included in a wishlist row.
type ItemDTO struct {
	Product   ProductSummary `json:"product"`
	CreatedAt time.Time      `json:"created_at"`
}

// PageDTO returns a cursor-paginated wishlist view.
type PageDTO struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func itemOf(row models.WishlistItem) ItemDTO {
	dto := ItemDTO{CreatedAt: row.CreatedAt}
	dto.Product.ID = row.ProductID
	if p := row.Product; p != nil {
		dto.Product = ProductSummary{
			ID:       p.ID,
			SKU:      p.SKU,
			Name:     p.Name,
			Price:    p.Price,
			MOQ:      p.MOQ,
			IsActive: p.IsActive,
		}
	}
	return dto
}
