// Package money keeps amounts in integer minor units and only converts to
// decimal form at the presentation edge.
package money

import (
	"github.com/shopspring/decimal"
)

// MinorUnitsPerMajor is the number of minor units (paise) in one rupee.
const MinorUnitsPerMajor = 100

var (
	hundred  = decimal.NewFromInt(100)
	perMajor = decimal.NewFromInt(MinorUnitsPerMajor)
)

// Format renders minor units as a major-unit string with two decimals, e.g. 54700 -> "547.00".
func Format(minor int64) string {
	return decimal.NewFromInt(minor).Div(perMajor).StringFixed(2)
}

// FormatWhole renders minor units in major units without trailing zeros, e.g. 49900 -> "499".
func FormatWhole(minor int64) string {
	return decimal.NewFromInt(minor).Div(perMajor).String()
}

// FromMajor converts a major-unit decimal into minor units, rounding half away from zero.
func FromMajor(major decimal.Decimal) int64 {
	return major.Mul(perMajor).Round(0).IntPart()
}

// Percent returns pct percent of amount in minor units, rounded half away from zero.
// A non-positive amount or percentage yields zero.
func Percent(amount int64, pct decimal.Decimal) int64 {
	if amount <= 0 || !pct.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}

// Min returns the smaller amount.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// NonNegative clamps negative amounts to zero.
func NonNegative(amount int64) int64 {
	if amount < 0 {
		return 0
	}
	return amount
}
