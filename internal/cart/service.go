package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// View is the cart as returned to clients.
type View struct {
	Items     []SnapshotItem  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// Service manages a user's cart before checkout.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (View, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (View, error)
	DecrementItem(ctx context.Context, userID, productID uuid.UUID) (View, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (View, error)
}

type service struct {
	tx       txRunner
	repo     *Repository
	products productLoader
}

// NewService builds the cart service.
func NewService(tx txRunner, repo *Repository, products productLoader) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{tx: tx, repo: repo, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (View, error) {
	if userID == uuid.Nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	snap, err := s.repo.Snapshot(ctx, userID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return viewOf(snap), nil
}

// AddItem finds or creates the cart and increments the product's line.
// The resulting quantity must satisfy the product MOQ.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (View, error) {
	if userID == uuid.Nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var view View
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find or create cart")
		}

		next := quantity
		existing, err := repo.FindItem(ctx, record.ID, productID)
		switch {
		case err == nil:
			next += existing.Quantity
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if err := ValidateMOQ([]MOQValidationInput{{
			ProductID:   product.ID,
			ProductName: product.Name,
			MOQ:         product.MOQ,
			Quantity:    next,
		}}); err != nil {
			return err
		}

		if _, err := repo.SetQuantity(ctx, record.ID, productID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
		}

		view, err = s.viewTx(ctx, repo, userID)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// DecrementItem lowers the line by one and removes it when it reaches zero.
func (s *service) DecrementItem(ctx context.Context, userID, productID uuid.UUID) (View, error) {
	return s.mutateItem(ctx, userID, productID, func(repo *Repository, item *models.CartItem) error {
		if item.Quantity > 1 {
			_, err := repo.SetQuantity(ctx, item.CartID, item.ProductID, item.Quantity-1)
			return err
		}
		_, err := repo.DeleteItem(ctx, item.CartID, item.ProductID)
		return err
	})
}

// RemoveItem deletes the line regardless of quantity.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (View, error) {
	return s.mutateItem(ctx, userID, productID, func(repo *Repository, item *models.CartItem) error {
		_, err := repo.DeleteItem(ctx, item.CartID, item.ProductID)
		return err
	})
}

func (s *service) mutateItem(ctx context.Context, userID, productID uuid.UUID, apply func(*Repository, *models.CartItem) error) (View, error) {
	if userID == uuid.Nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var view View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		item, err := repo.FindItem(ctx, record.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if err := apply(repo, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

		view, err = s.viewTx(ctx, repo, userID)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

func (s *service) viewTx(ctx context.Context, repo *Repository, userID uuid.UUID) (View, error) {
	snap, err := repo.Snapshot(ctx, userID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return viewOf(snap), nil
}

func viewOf(snap Snapshot) View {
	items := snap.Items
	if items == nil {
		items = []SnapshotItem{}
	}
	return View{
		Items:     items,
		Total:     snap.Total(),
		ItemCount: snap.ItemCount(),
	}
}
