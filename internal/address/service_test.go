package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wholesale-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

func sampleInput() Input {
	return Input{
		Street:  " 12 MG Road ",
		City:    "Surat",
		State:   "Gujarat",
		Pincode: "395003",
		Phone:   "9876543210",
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestCreateTrimsAndRequiresFields(t *testing.T) {
	svc := newTestService(t)
	actor := Actor{UserID: uuid.New()}

	created, err := svc.Create(context.Background(), actor, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "12 MG Road", created.Street)
	assert.Equal(t, actor.UserID, created.UserID)

	bad := sampleInput()
	bad.Phone = "  "
	_, err = svc.Create(context.Background(), actor, bad)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestUpdateAndDeleteRequireOwnerOrAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := Actor{UserID: uuid.New()}
	stranger := Actor{UserID: uuid.New()}
	admin := Actor{UserID: uuid.New(), IsAdmin: true}

	created, err := svc.Create(ctx, owner, sampleInput())
	require.NoError(t, err)

	changed := sampleInput()
	changed.City = "Ahmedabad"
	_, err = svc.Update(ctx, stranger, created.ID, changed)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	updated, err := svc.Update(ctx, admin, created.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, "Ahmedabad", updated.City)
	assert.Equal(t, owner.UserID, updated.UserID)

	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(svc.Delete(ctx, stranger, created.ID)))
	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(svc.Delete(ctx, owner, created.ID)))
}

func TestListScopesByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := Actor{UserID: uuid.New()}
	bob := Actor{UserID: uuid.New()}
	admin := Actor{UserID: uuid.New(), IsAdmin: true}

	_, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, sampleInput())
	require.NoError(t, err)

	mine, err := svc.List(ctx, alice, true)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := svc.List(ctx, admin, true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	own, err := svc.List(ctx, admin, false)
	require.NoError(t, err)
	require.Empty(t, own)
}
