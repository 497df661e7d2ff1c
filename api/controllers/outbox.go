package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/api/validators"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

// DeadLetterLister reads outbox events the publisher gave up on.
type DeadLetterLister interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

// AdminDeadLetters lists the newest dead-lettered order and payment events.
func AdminDeadLetters(store DeadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			serviceUnavailable(w, r, logg, "outbox")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := store.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dead_letters": rows})
	}
}
