package quotations

import (
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
)

// expireStatement is the approved → expired transition rule. The interactive
// path adds an id/version guard; the scheduler runs it as a batch.
func expireStatement(today time.Time) *versioned.Statement {
	return versioned.Update("quotations").
		Set("status", string(StatusExpired)).
		Where("status = ?", string(StatusApproved)).
		Where("valid_until < ?", today)
}

func expireOneStatement(id, version int64, today time.Time) *versioned.Statement {
	return expireStatement(today).Guard(id, version).Returning(quotationColumns)
}

func expireDueStatement(today time.Time) *versioned.Statement {
	return expireStatement(today).Bump().Where("is_deleted = false").Returning(quotationColumns)
}

// StatusStatement moves a quotation from one status to another without a
// caller-supplied version; invoices use it to follow their source quotation.
func StatusStatement(id int64, from, to Status) *versioned.Statement {
	return versioned.Update("quotations").
		Set("status", string(to)).
		Bump().
		Where("id = ?", id).
		Where("status = ?", string(from)).
		Where("is_deleted = false").
		Returning("id")
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
