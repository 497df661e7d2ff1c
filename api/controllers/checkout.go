package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/api/validators"
	"github.com/angelmondragon/wholesale-backend/internal/checkout"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
}

type checkoutOrderResponse struct {
	ID         uuid.UUID         `json:"id"`
	Status     enums.OrderStatus `json:"status"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	ItemCount  int               `json:"item_count"`
	CreatedAt  time.Time         `json:"created_at"`
}

type checkoutPaymentResponse struct {
	ID             uuid.UUID           `json:"id"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	Amount         decimal.Decimal     `json:"amount"`
	GatewayOrderID *string             `json:"gateway_order_id,omitempty"`
}

type checkoutResponse struct {
	State        checkout.State           `json:"state"`
	Order        *checkoutOrderResponse   `json:"order,omitempty"`
	Payment      *checkoutPaymentResponse `json:"payment,omitempty"`
	GatewayOrder *checkout.GatewayOrder   `json:"gateway_order,omitempty"`
}

// Checkout converts the caller's cart into an order. Cash orders complete
// immediately; online orders return the gateway order the client must pay.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "checkout")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method"))
			return
		}

		result := svc.Checkout(r.Context(), userID, method)
		if !result.Success {
			responses.WriteError(r.Context(), logg, w, resultError(result.Err))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

func newCheckoutResponse(result checkout.Result) checkoutResponse {
	resp := checkoutResponse{State: result.State, GatewayOrder: result.GatewayOrder}
	if o := result.Order; o != nil {
		resp.Order = orderResponse(o)
	}
	if p := result.Payment; p != nil {
		resp.Payment = &checkoutPaymentResponse{
			ID:             p.ID,
			Method:         p.Method,
			Status:         p.Status,
			Amount:         p.Amount,
			GatewayOrderID: p.GatewayOrderID,
		}
	}
	return resp
}

func orderResponse(o *models.Order) *checkoutOrderResponse {
	resp := &checkoutOrderResponse{
		ID:         o.ID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
	}
	for _, item := range o.Items {
		resp.ItemCount += item.Quantity
	}
	return resp
}
