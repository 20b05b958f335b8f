// Package invariant derives composite figures so that their algebraic and
// percentage relationships hold exactly.
//
// Derived values are never varied on their own: differences and sums are
// computed from independently varied components, and percentage breakdowns
// push their rounding residue into the last category. Component amounts are
// left as generated; only the reported percentage of the last category moves.
package invariant

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PercentPlaces is the precision of every reported percentage
const PercentPlaces = 2

var hundred = decimal.NewFromInt(100)

var (
	ErrZeroTotal      = errors.New("zero denominator")
	ErrNegativeAmount = errors.New("negative component")
	ErrNoComponents   = errors.New("no components")
)

// Subtract derives a difference such as net = revenue - expenses
func Subtract(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

// Sum derives an additive total such as ebida = operating + depreciation + interest
func Sum(parts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p)
	}
	return total
}

// Shares converts amounts into percentages of their total that sum to exactly 100.
// Every category but the last is rounded to places; the last absorbs the residue.
func Shares(amounts []decimal.Decimal, places int32) ([]decimal.Decimal, error) {
	if len(amounts) == 0 {
		return nil, ErrNoComponents
	}
	for i, a := range amounts {
		if a.IsNegative() {
			return nil, fmt.Errorf("component %d is %s: %w", i, a, ErrNegativeAmount)
		}
	}

	total := Sum(amounts...)
	if total.IsZero() {
		return nil, ErrZeroTotal
	}

	shares := make([]decimal.Decimal, len(amounts))
	assigned := decimal.Zero
	last := len(amounts) - 1
	for i := 0; i < last; i++ {
		shares[i] = amounts[i].Div(total).Mul(hundred).Round(places)
		assigned = assigned.Add(shares[i])
	}
	shares[last] = hundred.Sub(assigned)

	return shares, nil
}

// Allocate splits a whole-unit total in proportion to weights.
// The parts sum to total exactly; the last part absorbs rounding.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, ErrNoComponents
	}
	for i, w := range weights {
		if w.IsNegative() {
			return nil, fmt.Errorf("weight %d is %s: %w", i, w, ErrNegativeAmount)
		}
	}

	sum := Sum(weights...)
	if sum.IsZero() {
		return nil, ErrZeroTotal
	}

	parts := make([]decimal.Decimal, len(weights))
	assigned := decimal.Zero
	last := len(weights) - 1
	for i := 0; i < last; i++ {
		parts[i] = total.Mul(weights[i]).Div(sum).Round(0)
		assigned = assigned.Add(parts[i])
	}
	parts[last] = total.Sub(assigned)

	return parts, nil
}

// Margin returns part / whole * 100 at PercentPlaces
func Margin(part, whole decimal.Decimal) (decimal.Decimal, error) {
	if whole.IsZero() {
		return decimal.Zero, ErrZeroTotal
	}
	return part.Div(whole).Mul(hundred).Round(PercentPlaces), nil
}
