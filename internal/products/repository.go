package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/pagination"
)

// Repository reads catalog rows. Catalog writes happen outside this service.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided database handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a product with its variants.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByID loads a product that is currently listed.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns a cursor page of active products, newest first.
func (r *Repository) ListActive(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	page, err := pagination.Scope(params)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Where("is_active = ?", true)

	var rows []models.Product
	if err := query.Scopes(page).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return rows, next, nil
}
