package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
)

// CreateProduct inserts an active product priced in major units.
func CreateProduct(t testing.TB, db *gorm.DB, name, price string, moq int) *models.Product {
	t.Helper()

	if moq <= 0 {
		moq = 1
	}
	product := &models.Product{
		ID:       uuid.New(),
		SKU:      "SKU-" + uuid.NewString()[:8],
		Name:     name,
		Price:    decimal.RequireFromString(price),
		MOQ:      moq,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

// DeactivateProduct flips is_active to false. Inserts cannot write the zero
// value because the column carries a default.
func DeactivateProduct(t testing.TB, db *gorm.DB, id uuid.UUID) {
	t.Helper()

	if err := db.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}
}

// CartLine is one fixture line for FillCart.
type CartLine struct {
	Product  *models.Product
	Quantity int
}

// FillCart creates the user's cart with the given lines.
func FillCart(t testing.TB, db *gorm.DB, userID uuid.UUID, lines ...CartLine) *models.Cart {
	t.Helper()

	cart := &models.Cart{ID: uuid.New(), UserID: userID}
	if err := db.Create(cart).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for _, line := range lines {
		item := &models.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
		}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("create cart item: %v", err)
		}
	}
	return cart
}

// Count returns the number of rows for model.
func Count(t testing.TB, db *gorm.DB, model any) int64 {
	t.Helper()

	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
