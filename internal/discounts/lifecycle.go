package discounts

import (
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
)

func expireDueStatement(today time.Time) *versioned.Statement {
	return versioned.Update("discounts").
		Set("is_active", false).
		Bump().
		Where("is_active = true").
		Where("is_deleted = false").
		Where("end_date < ?", today).
		Returning(discountColumns)
}

func activateDueStatement(today time.Time) *versioned.Statement {
	return versioned.Update("discounts").
		Set("is_active", true).
		Bump().
		Where("is_active = false").
		Where("is_deleted = false").
		Where("start_date <= ?", today).
		Where("end_date >= ?", today).
		Returning(discountColumns)
}

// redeemStatement consumes one use, refusing once the limit is reached.
func redeemStatement(id int64) *versioned.Statement {
	return versioned.Update("discounts").
		SetExpr("used_count", "used_count + 1").
		Bump().
		Where("id = ?", id).
		Where("is_deleted = false").
		Where("(usage_limit IS NULL OR used_count < usage_limit)").
		Returning(discountColumns)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
