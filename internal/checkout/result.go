package checkout

import (
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

// State is the furthest step a checkout attempt reached.
type State string

const (
	StateStarted         State = "STARTED"
	StateCartLoaded      State = "CART_LOADED"
	StateTotalComputed   State = "TOTAL_COMPUTED"
	StateOrderCreated    State = "ORDER_CREATED"
	StateComplete        State = "COMPLETE"
	StateAwaitingGateway State = "AWAITING_GATEWAY"
)

// GatewayOrder carries what a client needs to open the gateway checkout
// widget. Amount is in minor units.
type GatewayOrder struct {
	KeyID    string `json:"key_id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Result is the outcome of one checkout attempt. Err is set exactly when
// Success is false; Order and Payment are only set for committed rows. A
// failed result in state ORDER_CREATED means the order insert was rolled
// back by a later step.
type Result struct {
	Success      bool
	State        State
	Order        *models.Order
	Payment      *models.Payment
	GatewayOrder *GatewayOrder
	Err          *pkgerrors.Error
}

// Outcome is the metric label for the result: "success" or the error code.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	if r.Err == nil {
		return string(pkgerrors.CodeInternal)
	}
	return string(r.Err.Code())
}

func failed(state State, err error) Result {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "checkout failed")
	}
	return Result{State: state, Err: typed}
}
