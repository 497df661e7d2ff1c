// Package repo holds the pieces shared by the gorm repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

// Base is embedded by repositories that only ever read and write through a
// single handle.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the handle to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the repository to tx. A nil tx keeps the current handle.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx != nil {
		b.db = tx
	}
	return b
}

// First loads the first T matching query.
func First[T any](db *gorm.DB, query string, args ...any) (*T, error) {
	var row T
	if err := db.Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// LoadError maps a lookup failure onto the API error taxonomy: a missing
// row is NOT_FOUND, anything else is a dependency failure.
func LoadError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
