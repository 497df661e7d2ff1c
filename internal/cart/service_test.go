package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-backend/internal/products"
	pkgdb "github.com/angelmondragon/wholesale-backend/pkg/db"
	"github.com/angelmondragon/wholesale-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(pkgdb.FromGorm(db), NewRepository(db), products.NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := dbtest.CreateProduct(t, db, "Shirt", "120.00", 1)

	_, err := svc.AddItem(ctx, userID, product.ID, 1)
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	require.Equal(t, 3, view.Items[0].Quantity)
	require.Equal(t, "360", view.Total.String())
}

func TestAddItemEnforcesMOQ(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := dbtest.CreateProduct(t, db, "Bulk Socks", "20.00", 12)

	_, err := svc.AddItem(ctx, userID, product.ID, 6)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	view, err := svc.AddItem(ctx, userID, product.ID, 12)
	require.NoError(t, err)
	require.Equal(t, 12, view.ItemCount)
}

func TestAddItemRejectsUnknownOrInactiveProduct(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, uuid.New(), uuid.New(), 1)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	product := dbtest.CreateProduct(t, db, "Gone", "1.00", 1)
	dbtest.DeactivateProduct(t, db, product.ID)
	_, err = svc.AddItem(ctx, uuid.New(), product.ID, 1)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.AddItem(ctx, uuid.New(), product.ID, 0)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecrementRemovesAtOne(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := dbtest.CreateProduct(t, db, "Cap", "15.00", 1)

	_, err := svc.AddItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)

	view, err := svc.DecrementItem(ctx, userID, product.ID)
	require.NoError(t, err)
	require.Equal(t, 1, view.Items[0].Quantity)

	view, err = svc.DecrementItem(ctx, userID, product.ID)
	require.NoError(t, err)
	require.Empty(t, view.Items)

	_, err = svc.DecrementItem(ctx, userID, product.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRemoveItem(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	a := dbtest.CreateProduct(t, db, "A", "10.00", 1)
	b := dbtest.CreateProduct(t, db, "B", "5.00", 1)

	_, err := svc.RemoveItem(ctx, userID, a.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.AddItem(ctx, userID, a.ID, 4)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, b.ID, 1)
	require.NoError(t, err)

	view, err := svc.RemoveItem(ctx, userID, a.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, "5", view.Total.String())
}

func TestGetWithoutCartReturnsEmptyView(t *testing.T) {
	svc, _ := newTestService(t)
	view, err := svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, view.Items)
	require.Empty(t, view.Items)
	require.True(t, view.Total.IsZero())
}
