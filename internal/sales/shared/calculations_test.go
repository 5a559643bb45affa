package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGSTExclusivity(t *testing.T) {
	g := GST{Rate: dec("18"), HomeState: "Karnataka"}

	intra := g.Compute(dec("1000.05"), g.InterState(" karnataka "))
	assert.Equal(t, "180.01", intra.TaxAmount.StringFixed(2))
	assert.Equal(t, "90.00", intra.CGST.StringFixed(2))
	assert.Equal(t, "90.01", intra.SGST.StringFixed(2))
	assert.True(t, intra.IGST.IsZero())
	assert.True(t, intra.Consistent(false))
	assert.False(t, intra.Consistent(true))

	inter := g.Compute(dec("1000"), g.InterState("Kerala"))
	assert.Equal(t, "180.00", inter.IGST.StringFixed(2))
	assert.True(t, inter.CGST.IsZero())
	assert.True(t, inter.SGST.IsZero())
	assert.True(t, inter.Consistent(true))
	assert.False(t, inter.Consistent(false))
}

func TestInterStateWithoutHomeState(t *testing.T) {
	assert.False(t, GST{}.InterState("Kerala"))
}

func TestPriceLinesUsesListPriceWhenUnset(t *testing.T) {
	override := dec("99.999")
	lines, subtotal, err := PriceLines([]LineInput{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1, UnitPrice: &override},
	}, func(id int64) (decimal.Decimal, error) { return dec("250"), nil })
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "500.00", lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, "100.00", lines[1].UnitPrice.StringFixed(2))
	assert.Equal(t, "600.00", subtotal.StringFixed(2))

	_, _, err = PriceLines(nil, nil)
	assert.Error(t, err)
	_, _, err = PriceLines([]LineInput{{ProductID: 1, Quantity: 0}}, nil)
	assert.Error(t, err)
}

func TestLinesSignatureIgnoresOrder(t *testing.T) {
	a := []Line{{ProductID: 1, Quantity: 2, UnitPrice: dec("10")}, {ProductID: 3, Quantity: 1, UnitPrice: dec("5")}}
	b := []Line{a[1], a[0]}
	sa, err := LinesSignature(a)
	require.NoError(t, err)
	sb, err := LinesSignature(b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}
