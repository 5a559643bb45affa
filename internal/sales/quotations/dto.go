package quotations

import "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/shared"

type CreateQuotationRequest struct {
	CustomerID int64              `json:"customer_id" validate:"required,gt=0"`
	ValidUntil string             `json:"valid_until" validate:"required,datetime=2006-01-02"`
	Notes      string             `json:"notes" validate:"max=2000"`
	Items      []shared.LineInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateQuotationRequest struct {
	Version    int64              `json:"version" validate:"required,gt=0"`
	ValidUntil string             `json:"valid_until" validate:"required,datetime=2006-01-02"`
	Notes      string             `json:"notes" validate:"max=2000"`
	Items      []shared.LineInput `json:"items" validate:"required,min=1,dive"`
}
