package service

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
)

// ApportionLine is one sale line as the apportionment engine sees it:
// its monetary total plus the fiscal defaults of the backing catalog
// item. Lines without an item carry zero rates, which is a legitimate
// input, not an error.
type ApportionLine struct {
	LineID    snowflake.ID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal

	CSTs  [fiscal.NumTaxKinds]string
	Rates [fiscal.NumTaxKinds]decimal.Decimal
}

// TaxAmount is one computed per-kind result.
type TaxAmount struct {
	CST   string
	Rate  decimal.Decimal
	Value decimal.Decimal
}

// LineTaxes is the engine's output for one line: the apportioned shares,
// the resulting tax base and the per-kind values.
type LineTaxes struct {
	LineID        snowflake.ID
	DiscountShare decimal.Decimal
	FreightShare  decimal.Decimal
	Base          decimal.Decimal
	Taxes         [fiscal.NumTaxKinds]TaxAmount
}

// Apportion distributes the document-level discount and freight across
// the lines in proportion to their totals and computes the per-kind tax
// values on each resulting base.
//
// Each share is rounded to 2 decimals independently, so the rounded
// shares may differ from the document amount by up to one cent per
// line. The residue is not reassigned to any line; the unrounded
// algebra still conserves the grand total exactly.
//
// A zero items total is a no-op: nothing to distribute over, empty
// result, no error. Negative inputs are rejected before any
// computation.
func Apportion(lines []ApportionLine, discount, freight decimal.Decimal) ([]LineTaxes, error) {
	if discount.IsNegative() || freight.IsNegative() {
		return nil, saledomain.ErrInvalidInput
	}

	itemsTotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity.IsNegative() || line.UnitPrice.IsNegative() || line.LineTotal.IsNegative() {
			return nil, saledomain.ErrInvalidInput
		}
		itemsTotal = itemsTotal.Add(line.LineTotal)
	}
	if itemsTotal.IsZero() {
		return nil, nil
	}

	out := make([]LineTaxes, 0, len(lines))
	for _, line := range lines {
		discountShare := fiscal.Round2(discount.Mul(line.LineTotal).Div(itemsTotal))
		freightShare := fiscal.Round2(freight.Mul(line.LineTotal).Div(itemsTotal))
		base := line.LineTotal.Sub(discountShare).Add(freightShare)

		result := LineTaxes{
			LineID:        line.LineID,
			DiscountShare: discountShare,
			FreightShare:  freightShare,
			Base:          base,
		}
		for _, k := range fiscal.TaxKinds {
			result.Taxes[k] = TaxAmount{
				CST:   line.CSTs[k],
				Rate:  line.Rates[k],
				Value: fiscal.TaxValue(base, line.Rates[k]),
			}
		}
		out = append(out, result)
	}
	return out, nil
}
