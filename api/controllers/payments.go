package controllers

import (
	"net/http"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/api/validators"
	"github.com/angelmondragon/wholesale-backend/internal/payments"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

// verifyPaymentRequest mirrors the gateway's client-side success callback.
type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required,max=64"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required,max=64"`
	Signature        string `json:"razorpay_signature" validate:"required,max=256"`
}

type verifyPaymentResponse struct {
	Verified      bool                `json:"verified"`
	OrderID       string              `json:"order_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
}

func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "payments")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := svc.VerifyPayment(r.Context(), userID,
			validators.SanitizeString(payload.GatewayOrderID, 64),
			validators.SanitizeString(payload.GatewayPaymentID, 64),
			validators.SanitizeString(payload.Signature, 256),
		)
		if !result.Success {
			responses.WriteError(r.Context(), logg, w, resultError(result.Err))
			return
		}
		resp := verifyPaymentResponse{Verified: true, OrderStatus: result.OrderStatus}
		if p := result.Payment; p != nil {
			resp.OrderID = p.OrderID.String()
			resp.PaymentStatus = p.Status
		}
		responses.WriteSuccess(w, resp)
	}
}
