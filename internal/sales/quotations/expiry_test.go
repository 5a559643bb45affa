package quotations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpireStatementsShareTransitionRule(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	one, oneArgs := expireOneStatement(12, 3, today).Build()
	assert.Equal(t, "UPDATE quotations SET status = $1, version = version + 1, updated_at = NOW() "+
		"WHERE status = $2 AND valid_until < $3 AND id = $4 AND version = $5 AND is_deleted = false "+
		"RETURNING "+quotationColumns, one)
	assert.Equal(t, []any{"expired", "approved", today, int64(12), int64(3)}, oneArgs)

	batch, batchArgs := expireDueStatement(today).Build()
	assert.Equal(t, "UPDATE quotations SET status = $1, version = version + 1, updated_at = NOW() "+
		"WHERE status = $2 AND valid_until < $3 AND is_deleted = false "+
		"RETURNING "+quotationColumns, batch)
	assert.Equal(t, []any{"expired", "approved", today}, batchArgs)
}

func TestStatusStatement(t *testing.T) {
	sql, args := StatusStatement(4, StatusConverted, StatusInvoiced).Build()
	assert.Equal(t, "UPDATE quotations SET status = $1, version = version + 1, updated_at = NOW() "+
		"WHERE id = $2 AND status = $3 AND is_deleted = false RETURNING id", sql)
	assert.Equal(t, []any{"invoiced", int64(4), "converted_to_invoice"}, args)
}

func TestDateOnly(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), dateOnly(time.Date(2026, 1, 2, 0, 30, 0, 0, ist)))
}
