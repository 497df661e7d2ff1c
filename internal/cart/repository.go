package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/wholesale-backend/pkg/db"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
)

// Repository reads carts and applies pre-checkout line mutations. Clearing
// a cart after checkout belongs to the ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Snapshot returns the user's cart with every line joined to its product.
// A missing cart yields an empty snapshot and no error.
func (r *Repository) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	return r.snapshot(ctx, userID, false)
}

// SnapshotForUpdate is Snapshot with the cart row locked for the rest of the
// surrounding transaction.
func (r *Repository) SnapshotForUpdate(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	return r.snapshot(ctx, userID, true)
}

func (r *Repository) snapshot(ctx context.Context, userID uuid.UUID, lock bool) (Snapshot, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var record models.Cart
	err := query.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotFrom(&record), nil
}

// FindByUser returns the user's cart row.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindOrCreate returns the user's cart, creating it on first use.
func (r *Repository) FindOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	record, err := r.FindByUser(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = &models.Cart{ID: uuid.New(), UserID: userID}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.FindByUser(ctx, userID)
		}
		return nil, err
	}
	return record, nil
}

// FindItem returns the line for (cart, product).
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// SetQuantity writes quantity on an existing line, or inserts the line when
// it does not exist yet.
func (r *Repository) SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	item, err := r.FindItem(ctx, cartID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if item == nil {
		item = &models.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
		}
		if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
			return nil, err
		}
		return item, nil
	}

	if err := r.db.WithContext(ctx).
		Model(item).
		Update("quantity", quantity).Error; err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

// DeleteItem removes the (cart, product) line. It reports whether a row was
// removed.
func (r *Repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
