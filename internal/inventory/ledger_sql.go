package inventory

import (
	"context"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
)

// SQLLedger implements LedgerTx over a PostgreSQL transaction.
type SQLLedger struct {
	q db.DBTX
}

// NewSQLLedger binds the ledger to an open transaction.
func NewSQLLedger(q db.DBTX) *SQLLedger {
	return &SQLLedger{q: q}
}

// LockBalance implements LedgerTx.
func (l *SQLLedger) LockBalance(ctx context.Context, productID, locationID int64) (Balance, error) {
	if _, err := l.q.Exec(ctx, `INSERT INTO inventory_balances (product_id, location_id, quantity, updated_at)
VALUES ($1, $2, 0, NOW())
ON CONFLICT (product_id, location_id) DO NOTHING`, productID, locationID); err != nil {
		return Balance{}, err
	}
	var bal Balance
	err := l.q.QueryRow(ctx, `SELECT product_id, location_id, quantity, updated_at
FROM inventory_balances
WHERE product_id = $1 AND location_id = $2
FOR UPDATE`, productID, locationID).Scan(&bal.ProductID, &bal.LocationID, &bal.Quantity, &bal.UpdatedAt)
	return bal, err
}

// InsertMovement implements LedgerTx.
func (l *SQLLedger) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	err := l.q.QueryRow(ctx, `INSERT INTO inventory_movements
(product_id, location_id, quantity_change, movement_type, reference_type, reference_id, note, actor_id, actor_name, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`, m.ProductID, m.LocationID, m.QuantityChange, string(m.MovementType), string(m.ReferenceType),
		m.ReferenceID, m.Note, m.ActorID, m.ActorName, m.CreatedAt).Scan(&m.ID)
	return m, err
}

// UpdateBalance implements LedgerTx.
func (l *SQLLedger) UpdateBalance(ctx context.Context, productID, locationID, quantity int64) error {
	_, err := l.q.Exec(ctx, `UPDATE inventory_balances SET quantity = $3, updated_at = NOW()
WHERE product_id = $1 AND location_id = $2`, productID, locationID, quantity)
	return err
}

// InsertActivity implements audit.Writer.
func (l *SQLLedger) InsertActivity(ctx context.Context, a audit.Activity) error {
	return audit.Insert(ctx, l.q, a)
}
