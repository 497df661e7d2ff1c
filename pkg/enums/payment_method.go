package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a buyer settles an order.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodOnline,
}

// paymentMethodAliases maps legacy storefront names onto canonical methods.
var paymentMethodAliases = map[string]PaymentMethod{
	"COD":      PaymentMethodCash,
	"RAZORPAY": PaymentMethodOnline,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod. Matching is
// case-insensitive and accepts COD and RAZORPAY as aliases.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if alias, ok := paymentMethodAliases[normalized]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
