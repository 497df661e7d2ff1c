package wishlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/internal/products"
	"github.com/angelmondragon/wholesale-backend/internal/repo"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ProductRepo  *products.Repository
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (PageDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	productRepo  *products.Repository
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		productRepo:  params.ProductRepo,
	}, nil
}

// GetWishlist returns the paginated wishlist for a user.
func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (PageDTO, error) {
	if userID == uuid.Nil {
		return PageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.wishlistRepo.ListItems(ctx, userID, params)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	page := PageDTO{Items: make([]ItemDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		page.Items = append(page.Items, itemOf(row))
	}
	return page, nil
}

// AddItem ensures the product is listed and adds it to the wishlist.
// Adding the same product twice is a no-op.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.productRepo.FindActiveByID(ctx, productID); err != nil {
		return repo.LoadError(err, "product")
	}
	if err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if _, err := s.wishlistRepo.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}
