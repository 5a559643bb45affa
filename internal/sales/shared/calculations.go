package shared

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// GST holds the configured tax rate (percent) and the seller's home state.
type GST struct {
	Rate      decimal.Decimal
	HomeState string
}

// InterState reports whether a sale to customerState is inter-state. An
// unknown home state treats every sale as intra-state.
func (g GST) InterState(customerState string) bool {
	home := strings.TrimSpace(g.HomeState)
	if home == "" {
		return false
	}
	return !strings.EqualFold(home, strings.TrimSpace(customerState))
}

// Breakup is the tax split of a document. Inter-state documents carry IGST
// only; intra-state documents carry CGST and SGST only.
type Breakup struct {
	TaxAmount decimal.Decimal `json:"tax_amount"`
	CGST      decimal.Decimal `json:"cgst"`
	SGST      decimal.Decimal `json:"sgst"`
	IGST      decimal.Decimal `json:"igst"`
}

// Compute taxes taxable at the configured rate.
func (g GST) Compute(taxable decimal.Decimal, interState bool) Breakup {
	tax := coreshared.RoundMoney(taxable.Mul(g.Rate).Div(hundred))
	return Split(tax, interState)
}

// Split divides tax between the GST components. Any odd paisa goes to SGST
// so CGST + SGST always equals the total.
func Split(tax decimal.Decimal, interState bool) Breakup {
	if interState {
		return Breakup{TaxAmount: tax, CGST: decimal.Zero, SGST: decimal.Zero, IGST: tax}
	}
	cgst := tax.Div(decimal.NewFromInt(2)).RoundDown(2)
	return Breakup{TaxAmount: tax, CGST: cgst, SGST: tax.Sub(cgst), IGST: decimal.Zero}
}

// Consistent checks the components sum to the total and respect the
// inter/intra-state exclusivity.
func (b Breakup) Consistent(interState bool) bool {
	if !b.CGST.Add(b.SGST).Add(b.IGST).Equal(b.TaxAmount) {
		return false
	}
	if interState {
		return b.CGST.IsZero() && b.SGST.IsZero()
	}
	return b.IGST.IsZero()
}

// LineInput is one requested document line. A nil UnitPrice takes the
// product's list price.
type LineInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int64            `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Line is a priced document line.
type Line struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PriceLookup resolves a product's list price.
type PriceLookup func(productID int64) (decimal.Decimal, error)

// PriceLines validates inputs and prices every line, returning the subtotal.
func PriceLines(inputs []LineInput, lookup PriceLookup) ([]Line, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, coreshared.Validationf("at least one line item is required")
	}
	lines := make([]Line, 0, len(inputs))
	subtotal := decimal.Zero
	for _, in := range inputs {
		if in.ProductID <= 0 || in.Quantity <= 0 {
			return nil, decimal.Zero, coreshared.Validationf("line items need a product and a positive quantity")
		}
		var price decimal.Decimal
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		} else {
			p, err := lookup(in.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			price = p
		}
		if price.IsNegative() {
			return nil, decimal.Zero, coreshared.Validationf("unit price must not be negative")
		}
		price = coreshared.RoundMoney(price)
		total := price.Mul(decimal.NewFromInt(in.Quantity))
		lines = append(lines, Line{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: price, LineTotal: total})
		subtotal = subtotal.Add(total)
	}
	return lines, subtotal, nil
}

type signedLine struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// LinesSignature fingerprints a set of lines independent of their order.
func LinesSignature(lines []Line) (string, error) {
	signed := make([]signedLine, 0, len(lines))
	for _, l := range lines {
		signed = append(signed, signedLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice.StringFixed(2)})
	}
	sort.Slice(signed, func(i, j int) bool {
		if signed[i].ProductID != signed[j].ProductID {
			return signed[i].ProductID < signed[j].ProductID
		}
		if signed[i].Quantity != signed[j].Quantity {
			return signed[i].Quantity < signed[j].Quantity
		}
		return signed[i].UnitPrice < signed[j].UnitPrice
	})
	return coreshared.Signature(signed)
}
