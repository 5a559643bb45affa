package discounts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFlat       Type = "flat"
)

// Discount is a promotional code applied to invoices. IsActive is flipped by
// admins and by the daily lifecycle job.
type Discount struct {
	versioned.Meta
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	DiscountType Type            `json:"discount_type"`
	Value        decimal.Decimal `json:"discount_value"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	UsageLimit   *int64          `json:"usage_limit,omitempty"`
	UsedCount    int64           `json:"used_count"`
	IsActive     bool            `json:"is_active"`
}

// Amount is the reduction this discount gives on gross, never more than gross.
func (d Discount) Amount(gross decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.DiscountType {
	case TypePercentage:
		amount = shared.RoundMoney(gross.Mul(d.Value).Div(decimal.NewFromInt(100)))
	default:
		amount = shared.RoundMoney(d.Value)
	}
	if amount.GreaterThan(gross) {
		return gross
	}
	return amount
}

// Usable reports whether the discount may be redeemed on today.
func (d Discount) Usable(today time.Time) error {
	switch {
	case d.IsDeleted:
		return shared.ErrNotFound
	case !d.IsActive:
		return shared.InvalidStatef("discount %s is not active", d.Code)
	case today.Before(d.StartDate) || today.After(d.EndDate):
		return shared.InvalidStatef("discount %s is outside its validity window", d.Code)
	case d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit:
		return shared.InvalidStatef("discount %s has reached its usage limit", d.Code)
	}
	return nil
}

// InWindow reports whether today falls within the start and end dates.
func (d Discount) InWindow(today time.Time) bool {
	return !today.Before(d.StartDate) && !today.After(d.EndDate)
}
