package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/customers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/shared"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Status string

const (
	StatusDraft         Status = "draft"
	StatusVerified      Status = "verified"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusFulfilled     Status = "fulfilled"
	StatusCancelled     Status = "cancelled"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
)

// Invoice amounts always satisfy TotalPaid + BalanceDue = NetAmount, where
// NetAmount = GrossAmount - DiscountAmount + TaxAmount.
type Invoice struct {
	versioned.Meta
	InvoiceNumber  string          `json:"invoice_number"`
	CustomerID     int64           `json:"customer_id"`
	QuotationID    *int64          `json:"quotation_id,omitempty"`
	Status         Status          `json:"status"`
	IsInterState   bool            `json:"is_inter_state"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	DiscountID     *int64          `json:"discount_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	shared.Breakup
	NetAmount        decimal.Decimal    `json:"net_amount"`
	TotalPaid        decimal.Decimal    `json:"total_paid"`
	BalanceDue       decimal.Decimal    `json:"balance_due"`
	CustomerSnapshot customers.Snapshot `json:"customer_snapshot"`
	ItemSignature    string             `json:"-"`
	CreatedBy        *int64             `json:"created_by,omitempty"`
	VerifiedBy       *int64             `json:"verified_by,omitempty"`
	Items            []Item             `json:"items"`
	Payments         []Payment          `json:"payments,omitempty"`
}

type Item struct {
	ID int64 `json:"id"`
	shared.Line
}

type Payment struct {
	ID         int64           `json:"id"`
	InvoiceID  int64           `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"payment_method"`
	Reference  string          `json:"reference,omitempty"`
	ReceivedBy *int64          `json:"received_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ListFilter struct {
	Status     Status
	CustomerID int64
}

// recalc derives tax, net and balance from gross, discount and payments.
func (inv *Invoice) recalc() error {
	if inv.DiscountAmount.IsNegative() || inv.DiscountAmount.GreaterThan(inv.GrossAmount) {
		return coreshared.Validationf("discount must be between 0 and the gross amount")
	}
	taxable := inv.GrossAmount.Sub(inv.DiscountAmount)
	inv.Breakup = shared.GST{Rate: inv.TaxRate}.Compute(taxable, inv.IsInterState)
	inv.NetAmount = taxable.Add(inv.TaxAmount)
	inv.BalanceDue = inv.NetAmount.Sub(inv.TotalPaid)
	if inv.BalanceDue.IsNegative() {
		return coreshared.InvalidStatef("invoice %s net amount would fall below the %s already paid",
			inv.InvoiceNumber, coreshared.FormatAmount(inv.TotalPaid))
	}
	return nil
}

// settle marks a verified invoice with nothing left to collect as paid.
func (inv *Invoice) settle() {
	if inv.Status == StatusVerified && inv.BalanceDue.IsZero() {
		inv.Status = StatusPaid
	}
}

func (inv Invoice) lines() []shared.Line {
	out := make([]shared.Line, 0, len(inv.Items))
	for _, it := range inv.Items {
		out = append(out, it.Line)
	}
	return out
}
