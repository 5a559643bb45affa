package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/shared"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted_to_invoice"
	StatusCancelled Status = "cancelled"
	StatusInvoiced  Status = "invoiced"
)

type Quotation struct {
	versioned.Meta
	QuotationNumber string          `json:"quotation_number"`
	CustomerID      int64           `json:"customer_id"`
	Status          Status          `json:"status"`
	ValidUntil      time.Time       `json:"valid_until"`
	IsInterState    bool            `json:"is_inter_state"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	shared.Breakup
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes"`
	ItemSignature string          `json:"-"`
	CreatedBy     *int64          `json:"created_by,omitempty"`
	ApprovedBy    *int64          `json:"approved_by,omitempty"`
	Items         []Item          `json:"items"`
}

type Item struct {
	ID int64 `json:"id"`
	shared.Line
}

// Lines returns the priced lines without row ids.
func (q Quotation) Lines() []shared.Line {
	out := make([]shared.Line, 0, len(q.Items))
	for _, it := range q.Items {
		out = append(out, it.Line)
	}
	return out
}

type ListFilter struct {
	Status     Status
	CustomerID int64
}
