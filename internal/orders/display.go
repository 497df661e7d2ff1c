package orders

import "github.com/angelmondragon/wholesale-backend/pkg/enums"

// DisplayStatus derives the status shown to buyers from the payment state.
// The stored order status is left untouched.
func DisplayStatus(orderStatus enums.OrderStatus, paymentStatus *enums.PaymentStatus) enums.OrderStatus {
	if paymentStatus == nil {
		return orderStatus
	}
	switch *paymentStatus {
	case enums.PaymentStatusCaptured:
		return enums.OrderStatusDelivered
	case enums.PaymentStatusCreated, enums.PaymentStatusAuthorized:
		return enums.OrderStatusPendingPayment
	case enums.PaymentStatusFailed:
		return enums.OrderStatusFailed
	case enums.PaymentStatusRefunded:
		return enums.OrderStatusRefunded
	default:
		return orderStatus
	}
}
