package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Epsilon bounds the float drift tolerated when comparing computed totals.
const Epsilon = 1e-9

// Format renders an amount for display with exactly two decimal places.
// Pricing math stays in float64 end to end; rounding happens only here, at
// the presentation boundary, so rounding error never compounds across lines.
func Format(amount float64) string {
	return decimal.NewFromFloat(amount).Round(2).StringFixed(2)
}

// ToMinorUnits converts an amount in currency units to integer minor units
// (cents) for payment providers, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ToWholeUnits converts an amount to whole currency units, rounding half away
// from zero. Mobile-money push requests only accept whole units.
func ToWholeUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(0).IntPart()
}

// Equal reports whether two amounts agree within Epsilon.
func Equal(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}
