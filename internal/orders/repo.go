package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/pagination"
)

// Repository reads orders. Order rows are written by the ledger only.
type Repository interface {
	List(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// List returns a newest-first cursor page. A nil userID lists every user.
func (r *repository) List(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	page, err := pagination.Scope(params)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var rows []models.Order
	if err := query.Scopes(page).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return rows, next, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Preload("Payments").
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
