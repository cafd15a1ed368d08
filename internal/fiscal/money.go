package fiscal

import "github.com/shopspring/decimal"

var (
	// CentTolerance is the maximum deviation accepted when comparing two
	// monetary values that were rounded independently.
	CentTolerance = decimal.New(1, -2)

	hundred = decimal.NewFromInt(100)
)

// Round2 rounds a monetary value to two decimal places, half away from zero.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// TaxValue computes round2(base * rate / 100). A zero rate yields a zero
// value; that is a normal outcome, not an error.
func TaxValue(base, rate decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(rate).Div(hundred))
}

// WithinCent reports whether a and b differ by at most one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(CentTolerance) <= 0
}
