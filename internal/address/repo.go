package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/internal/repo"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
)

// Repository persists delivery addresses.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to the provided database handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, address *models.Address) error {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	return r.DB(ctx).Create(address).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	return repo.First[models.Address](r.DB(ctx), "id = ?", id)
}

// List returns addresses newest first. A nil userID lists every user.
func (r *Repository) List(ctx context.Context, userID *uuid.UUID) ([]models.Address, error) {
	query := r.DB(ctx)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var rows []models.Address
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Update(ctx context.Context, address *models.Address) error {
	return r.DB(ctx).
		Model(&models.Address{}).
		Where("id = ?", address.ID).
		Updates(map[string]any{
			"street":  address.Street,
			"city":    address.City,
			"state":   address.State,
			"pincode": address.Pincode,
			"phone":   address.Phone,
		}).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Address{}).Error
}
