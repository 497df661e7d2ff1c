package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/api/middleware"
	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/api/validators"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/pagination"
)

// requireUser resolves the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a chi URL parameter or writes a 400.
func uuidParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// resultError converts a service result error into one safe to write.
func resultError(err *pkgerrors.Error) error {
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "operation failed without an error")
	}
	return err
}
