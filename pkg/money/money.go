// Package money converts between the major-unit amounts stored locally and
// the minor units payment gateways expect.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorPerMajor is the number of minor units (paise, cents) in one major unit.
const MinorPerMajor = 100

var minorFactor = decimal.NewFromInt(MinorPerMajor)

// Round normalizes a major-unit amount to two fractional digits.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// LineTotal returns quantity × unit price in major units.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// ToMinor converts a major-unit amount into integer minor units, rounding
// half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(minorFactor).Round(0).IntPart()
}

// FromMinor converts integer minor units back into major units.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Format renders amount with two fractional digits and a currency code.
func Format(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", Round(amount).StringFixed(2), currency)
}
