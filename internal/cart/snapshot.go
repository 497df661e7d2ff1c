package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/money"
)

// SnapshotItem is one cart line joined to its product's current name and price.
type SnapshotItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	MOQ       int             `json:"moq"`
}

// LineTotal returns Quantity × UnitPrice.
func (i SnapshotItem) LineTotal() decimal.Decimal {
	return money.LineTotal(i.UnitPrice, i.Quantity)
}

// Snapshot is a read-only view of a user's cart. Cart is nil when the user
// has never added anything.
type Snapshot struct {
	Cart  *models.Cart   `json:"-"`
	Items []SnapshotItem `json:"items"`
}

// IsEmpty reports whether there is nothing to check out.
func (s Snapshot) IsEmpty() bool {
	return s.Cart == nil || len(s.Items) == 0
}

// Total sums the line totals in major units.
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return money.Round(total)
}

// ItemCount sums quantities across lines.
func (s Snapshot) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func snapshotFrom(record *models.Cart) Snapshot {
	if record == nil {
		return Snapshot{}
	}
	items := make([]SnapshotItem, 0, len(record.Items))
	for _, item := range record.Items {
		if item.Product == nil {
			continue
		}
		items = append(items, SnapshotItem{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			UnitPrice: item.Product.Price,
			Quantity:  item.Quantity,
			MOQ:       item.Product.MOQ,
		})
	}
	return Snapshot{Cart: record, Items: items}
}
