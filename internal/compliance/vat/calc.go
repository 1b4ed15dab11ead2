// Package vat derives tax-exclusive and tax amounts from tax-inclusive
// totals at the statutory rate.
package vat

import "github.com/shopspring/decimal"

// StandardRatePercent is the statutory VAT rate for the jurisdiction.
const StandardRatePercent = 15

// StandardRate is the statutory rate as a fraction.
var StandardRate = decimal.New(StandardRatePercent, -2)

// Split computes the tax-exclusive amount and the tax portion of a
// tax-inclusive amount. Rounding to 2 decimals happens once, at the end;
// intermediates stay exact so line items do not accumulate drift. The two
// results always reconcile to the rounded input.
func Split(inclusive decimal.Decimal, rate decimal.Decimal) (exclusive, tax decimal.Decimal) {
	raw := inclusive.Div(decimal.NewFromInt(1).Add(rate))
	exclusive = raw.Round(2)
	tax = inclusive.Sub(raw).Round(2)
	return exclusive, tax
}

// SplitStandard applies Split at the standard rate.
func SplitStandard(inclusive decimal.Decimal) (exclusive, tax decimal.Decimal) {
	return Split(inclusive, StandardRate)
}

// Amount formats a monetary value as the fixed 2-decimal string every
// serialized amount in the subsystem uses.
func Amount(v decimal.Decimal) string {
	return v.StringFixed(2)
}
