package discounts

import "github.com/shopspring/decimal"

type DiscountForm struct {
	Code         string          `json:"code" validate:"required,max=40"`
	Description  string          `json:"description" validate:"max=500"`
	DiscountType Type            `json:"discount_type" validate:"required,oneof=percentage flat"`
	Value        decimal.Decimal `json:"discount_value"`
	StartDate    string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	UsageLimit   *int64          `json:"usage_limit,omitempty" validate:"omitempty,gt=0"`
}

type updateForm struct {
	DiscountForm
	Version int64 `json:"version" validate:"required,gt=0"`
}
