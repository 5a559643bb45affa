package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/shared"
)

type CreateInvoiceRequest struct {
	CustomerID int64              `json:"customer_id" validate:"required,gt=0"`
	Items      []shared.LineInput `json:"items" validate:"required,min=1,dive"`
}

type FromQuotationRequest struct {
	QuotationID int64 `json:"quotation_id" validate:"required,gt=0"`
	Version     int64 `json:"version" validate:"required,gt=0"`
}

type UpdateInvoiceRequest struct {
	Version int64              `json:"version" validate:"required,gt=0"`
	Items   []shared.LineInput `json:"items" validate:"required,min=1,dive"`
}

type ApplyDiscountRequest struct {
	Version int64  `json:"version" validate:"required,gt=0"`
	Code    string `json:"code" validate:"required,max=40"`
}

type OverrideDiscountRequest struct {
	Version int64           `json:"version" validate:"required,gt=0"`
	Amount  decimal.Decimal `json:"discount_amount"`
}

type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"payment_method" validate:"required,oneof=cash card upi bank_transfer cheque"`
	Reference string          `json:"reference" validate:"max=120"`
}
