package service

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apportionLine(id int64, total string, icmsRate string) ApportionLine {
	line := ApportionLine{
		LineID:    snowflake.ID(id),
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString(total),
		LineTotal: decimal.RequireFromString(total),
	}
	if icmsRate != "" {
		line.CSTs[fiscal.TaxICMS] = "00"
		line.Rates[fiscal.TaxICMS] = decimal.RequireFromString(icmsRate)
	}
	return line
}

func TestApportion_TwoLineScenario(t *testing.T) {
	lines := []ApportionLine{
		apportionLine(1, "80.00", "18"),
		apportionLine(2, "20.00", "18"),
	}

	results, err := Apportion(lines, decimal.RequireFromString("10.00"), decimal.RequireFromString("5.00"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	a, b := results[0], results[1]
	assert.True(t, a.DiscountShare.Equal(decimal.RequireFromString("8.00")), "got %s", a.DiscountShare)
	assert.True(t, a.FreightShare.Equal(decimal.RequireFromString("4.00")))
	assert.True(t, a.Base.Equal(decimal.RequireFromString("76.00")))
	assert.True(t, b.DiscountShare.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, b.FreightShare.Equal(decimal.RequireFromString("1.00")))
	assert.True(t, b.Base.Equal(decimal.RequireFromString("19.00")))

	assert.True(t, a.Taxes[fiscal.TaxICMS].Value.Equal(decimal.RequireFromString("13.68")))
	assert.True(t, b.Taxes[fiscal.TaxICMS].Value.Equal(decimal.RequireFromString("3.42")))

	// The other kinds carry no rates here and come out zero.
	assert.True(t, a.Taxes[fiscal.TaxIPI].Value.IsZero())
	assert.True(t, a.Taxes[fiscal.TaxPIS].Value.IsZero())
	assert.True(t, a.Taxes[fiscal.TaxCOFINS].Value.IsZero())
}

func TestApportion_ShareConservation(t *testing.T) {
	// Awkward proportions so every share rounds. The rounded shares may
	// miss the document amount by up to one cent per line; never more.
	cases := []struct {
		name     string
		totals   []string
		discount string
		freight  string
	}{
		{"thirds", []string{"10.00", "10.00", "10.00"}, "1.00", "2.00"},
		{"sevenths", []string{"13.57", "41.99", "7.03", "28.41"}, "9.99", "3.17"},
		{"skewed", []string{"0.01", "99.99"}, "5.55", "0.07"},
		{"many", []string{"3.33", "6.67", "1.11", "8.89", "2.22", "7.78"}, "11.11", "4.44"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := make([]ApportionLine, 0, len(tc.totals))
			for i, total := range tc.totals {
				lines = append(lines, apportionLine(int64(i+1), total, "18"))
			}
			discount := decimal.RequireFromString(tc.discount)
			freight := decimal.RequireFromString(tc.freight)

			results, err := Apportion(lines, discount, freight)
			require.NoError(t, err)

			discountSum, freightSum := decimal.Zero, decimal.Zero
			for _, r := range results {
				discountSum = discountSum.Add(r.DiscountShare)
				freightSum = freightSum.Add(r.FreightShare)
			}

			perLineTolerance := decimal.New(int64(len(lines)), -2)
			assert.True(t, discountSum.Sub(discount).Abs().LessThanOrEqual(perLineTolerance),
				"discount shares sum %s vs %s", discountSum, discount)
			assert.True(t, freightSum.Sub(freight).Abs().LessThanOrEqual(perLineTolerance),
				"freight shares sum %s vs %s", freightSum, freight)
		})
	}
}

func TestApportion_RoundedSharesStayWithinCent(t *testing.T) {
	// Rounding each share independently never moves it more than one
	// cent from the exact proportional amount.
	lines := []ApportionLine{
		apportionLine(1, "13.57", "18"),
		apportionLine(2, "41.99", "18"),
		apportionLine(3, "7.03", "18"),
	}
	discount := decimal.RequireFromString("9.99")
	freight := decimal.RequireFromString("3.17")

	itemsTotal := decimal.Zero
	for _, line := range lines {
		itemsTotal = itemsTotal.Add(line.LineTotal)
	}

	results, err := Apportion(lines, discount, freight)
	require.NoError(t, err)
	require.Len(t, results, len(lines))

	for i, r := range results {
		exactDiscount := discount.Mul(lines[i].LineTotal).Div(itemsTotal)
		exactFreight := freight.Mul(lines[i].LineTotal).Div(itemsTotal)
		assert.True(t, fiscal.WithinCent(r.DiscountShare, exactDiscount),
			"line %d discount share %s vs exact %s", i+1, r.DiscountShare, exactDiscount)
		assert.True(t, fiscal.WithinCent(r.FreightShare, exactFreight),
			"line %d freight share %s vs exact %s", i+1, r.FreightShare, exactFreight)
	}
}

func TestApportion_BaseConservationUnrounded(t *testing.T) {
	// The unrounded algebra conserves the grand total exactly:
	// sum(lineTotal - d*share + f*share) == itemsTotal - d + f since the
	// raw shares sum to 1.
	totals := []string{"13.57", "41.99", "7.03", "28.41"}
	discount := decimal.RequireFromString("9.99")
	freight := decimal.RequireFromString("3.17")

	itemsTotal := decimal.Zero
	for _, raw := range totals {
		itemsTotal = itemsTotal.Add(decimal.RequireFromString(raw))
	}

	unroundedSum := decimal.Zero
	for _, raw := range totals {
		lineTotal := decimal.RequireFromString(raw)
		discountShare := discount.Mul(lineTotal).Div(itemsTotal)
		freightShare := freight.Mul(lineTotal).Div(itemsTotal)
		unroundedSum = unroundedSum.Add(lineTotal.Sub(discountShare).Add(freightShare))
	}

	grandTotal := itemsTotal.Sub(discount).Add(freight)
	assert.True(t, unroundedSum.Sub(grandTotal).Abs().LessThan(decimal.New(1, -10)),
		"unrounded bases sum %s vs grand total %s", unroundedSum, grandTotal)
}

func TestApportion_ResidueIsNotReassigned(t *testing.T) {
	// Three equal lines, discount 1.00: each rounded share is 0.33 and
	// the lost cent stays lost. No line absorbs it.
	lines := []ApportionLine{
		apportionLine(1, "10.00", ""),
		apportionLine(2, "10.00", ""),
		apportionLine(3, "10.00", ""),
	}

	results, err := Apportion(lines, decimal.RequireFromString("1.00"), decimal.Zero)
	require.NoError(t, err)

	for _, r := range results {
		assert.True(t, r.DiscountShare.Equal(decimal.RequireFromString("0.33")),
			"share %s", r.DiscountShare)
	}
}

func TestApportion_ZeroItemsTotalIsNoop(t *testing.T) {
	results, err := Apportion(nil, decimal.RequireFromString("5.00"), decimal.Zero)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = Apportion([]ApportionLine{apportionLine(1, "0.00", "")}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestApportion_NegativeInputsRejected(t *testing.T) {
	lines := []ApportionLine{apportionLine(1, "10.00", "")}

	_, err := Apportion(lines, decimal.RequireFromString("-1"), decimal.Zero)
	assert.ErrorIs(t, err, saledomain.ErrInvalidInput)

	_, err = Apportion(lines, decimal.Zero, decimal.RequireFromString("-0.01"))
	assert.ErrorIs(t, err, saledomain.ErrInvalidInput)

	bad := apportionLine(2, "10.00", "")
	bad.Quantity = decimal.NewFromInt(-1)
	_, err = Apportion([]ApportionLine{bad}, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, saledomain.ErrInvalidInput)
}

func TestApportion_ZeroRateIsLegitimate(t *testing.T) {
	lines := []ApportionLine{apportionLine(1, "50.00", "")}

	results, err := Apportion(lines, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Base.Equal(decimal.RequireFromString("50.00")))
	for _, k := range fiscal.TaxKinds {
		assert.True(t, results[0].Taxes[k].Value.IsZero())
	}
}
