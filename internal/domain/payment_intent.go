package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentIntent mirrors the gateway-side order created for exactly one Order.
type PaymentIntent struct {
	OrderID        string
	GatewayOrderID string
	PaymentID      string
	AmountMinor    int64
	Currency       string
	Verified       bool
	CreatedAt      time.Time
	VerifiedAt     *time.Time
}

const minorUnitExponent = 2

// MinorUnits converts an amount to the smallest currency unit. It reports
// false when the amount carries precision below one minor unit.
func MinorUnits(amount decimal.Decimal) (int64, bool) {
	shifted := amount.Shift(minorUnitExponent)
	if !shifted.IsInteger() {
		return 0, false
	}
	return shifted.IntPart(), true
}
