package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/api/validators"
	cartsvc "github.com/angelmondragon/wholesale-backend/internal/cart"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1,max=10000"`
}

// CartGet returns the caller's cart with its live total.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem adds a product to the cart. Quantity defaults to one.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}
		view, err := svc.AddItem(r.Context(), userID, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartDecrementItem lowers a line by one and drops it at one.
func CartDecrementItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		productID, ok := uuidParam(w, r, logg, "productId")
		if !ok {
			return
		}
		view, err := svc.DecrementItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		productID, ok := uuidParam(w, r, logg, "productId")
		if !ok {
			return
		}
		view, err := svc.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
