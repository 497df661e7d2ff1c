package address

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/internal/repo"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

// Actor identifies who is calling. Admins may act on any address.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type Service interface {
	List(ctx context.Context, actor Actor, all bool) ([]DTO, error)
	Create(ctx context.Context, actor Actor, input Input) (DTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input Input) (DTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repository *Repository) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repository}, nil
}

// List returns the actor's addresses. Admins asking for all get every user's.
func (s *service) List(ctx context.Context, actor Actor, all bool) ([]DTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	var scope *uuid.UUID
	if !(all && actor.IsAdmin) {
		scope = &actor.UserID
	}
	rows, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]DTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, dtoOf(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input Input) (DTO, error) {
	if actor.UserID == uuid.Nil {
		return DTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	clean, err := input.normalize()
	if err != nil {
		return DTO{}, err
	}
	row := &models.Address{
		UserID:  actor.UserID,
		Street:  clean.Street,
		City:    clean.City,
		State:   clean.State,
		Pincode: clean.Pincode,
		Phone:   clean.Phone,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return DTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return dtoOf(*row), nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input Input) (DTO, error) {
	row, err := s.authorized(ctx, actor, id)
	if err != nil {
		return DTO{}, err
	}
	clean, err := input.normalize()
	if err != nil {
		return DTO{}, err
	}
	row.Street, row.City, row.State = clean.Street, clean.City, clean.State
	row.Pincode, row.Phone = clean.Pincode, clean.Phone
	if err := s.repo.Update(ctx, row); err != nil {
		return DTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return DTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload address")
	}
	return dtoOf(*updated), nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.authorized(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}

func (s *service) authorized(ctx context.Context, actor Actor, id uuid.UUID) (*models.Address, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.LoadError(err, "address")
	}
	if row.UserID != actor.UserID && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this address")
	}
	return row, nil
}
