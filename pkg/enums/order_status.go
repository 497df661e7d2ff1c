package enums

import "fmt"

// OrderStatus is the canonical lifecycle of an order row.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusFailed         OrderStatus = "FAILED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusDelivered,
	OrderStatusFailed,
	OrderStatusRefunded,
	OrderStatusPendingPayment,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
