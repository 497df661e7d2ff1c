package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/internal/repo"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/pagination"
)

// Service exposes order history to buyers and admins.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, requesterID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo Repository
}

// NewService builds the orders service.
func NewService(repository Repository) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repository}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.list(ctx, &userID, params)
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	return s.list(ctx, nil, params)
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, params pagination.Params) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, summaryOf(row))
	}
	return list, nil
}

// Get returns the order when the requester owns it or is an admin. Other
// users' orders are reported as not found.
func (s *service) Get(ctx context.Context, requesterID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, repo.LoadError(err, "order")
	}
	if !isAdmin && order.UserID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	detail := detailOf(*order)
	return &detail, nil
}
