// Package trading provides trading calculation utilities.
package trading

import "github.com/shopspring/decimal"

// TruncateFloat cuts value down to the given number of decimal places without
// rounding. Exchanges reject over-precise quantities, and sizing must never
// round up.
func TruncateFloat(value float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	f, _ := decimal.NewFromFloat(value).Truncate(int32(places)).Float64()
	return f
}

// RelativeOffset reports the signed fractional distance of price from base,
// e.g. 0.015 when price sits 1.5% above base. Returns 0 for a zero base.
func RelativeOffset(price, base float64) float64 {
	if base == 0 {
		return 0
	}
	d := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(base)).Div(decimal.NewFromFloat(base))
	f, _ := d.Float64()
	return f
}

// Notional is the position value at price for the given quantity.
func Notional(price, quantity float64) float64 {
	f, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).Float64()
	return f
}
