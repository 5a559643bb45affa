package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// TxRepository exposes transactional operations. Verification moves stock
// through the embedded ledger in the same transaction.
type TxRepository interface {
	inventory.LedgerTx
	GetProduct(ctx context.Context, id int64) (inventory.ProductRef, error)
	GetLocation(ctx context.Context, id int64) (inventory.Location, error)
	SupplierActive(ctx context.Context, id int64) (bool, error)
	// DraftExists reports another draft with the same signature.
	DraftExists(ctx context.Context, signature string, excludeID int64) (bool, error)
	InsertGRN(ctx context.Context, g GoodsReceipt) (GoodsReceipt, error)
	GetGRNForUpdate(ctx context.Context, id int64) (GoodsReceipt, error)
	// UpdateDraft rewrites header and lines guarded by g.Version.
	UpdateDraft(ctx context.Context, g GoodsReceipt) (GoodsReceipt, error)
	// SetStatus writes the status fields guarded by g.Version and from.
	SetStatus(ctx context.Context, g GoodsReceipt, from GRNStatus) (GoodsReceipt, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	*inventory.SQLLedger
	tx pgx.Tx
}

// WithTx runs fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{SQLLedger: inventory.NewSQLLedger(tx), tx: tx})
	})
}

const grnColumns = `id, grn_number, supplier_id, location_id, status, notes, item_signature,
created_by, verified_by, cancelled_by, verified_at, version, is_deleted, created_at, updated_at`

func scanGRN(row pgx.Row) (GoodsReceipt, error) {
	var (
		g      GoodsReceipt
		status string
	)
	err := row.Scan(&g.ID, &g.GRNNumber, &g.SupplierID, &g.LocationID, &status, &g.Notes, &g.ItemSignature,
		&g.CreatedBy, &g.VerifiedBy, &g.CancelledBy, &g.VerifiedAt, &g.Version, &g.IsDeleted, &g.CreatedAt, &g.UpdatedAt)
	g.Status = GRNStatus(status)
	return g, err
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, what)
	}
	return err
}

func loadLines(ctx context.Context, q db.DBTX, grnID int64) ([]GRNLine, error) {
	rows, err := q.Query(ctx, `SELECT id, grn_id, product_id, quantity, unit_cost
FROM grn_items WHERE grn_id = $1 ORDER BY id`, grnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []GRNLine{}
	for rows.Next() {
		var l GRNLine
		if err := rows.Scan(&l.ID, &l.GRNID, &l.ProductID, &l.Quantity, &l.UnitCost); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *txRepo) insertLines(ctx context.Context, grnID int64, lines []GRNLine) ([]GRNLine, error) {
	out := make([]GRNLine, 0, len(lines))
	for _, l := range lines {
		l.GRNID = grnID
		if err := t.tx.QueryRow(ctx, `INSERT INTO grn_items (grn_id, product_id, quantity, unit_cost)
VALUES ($1, $2, $3, $4) RETURNING id`, grnID, l.ProductID, l.Quantity, l.UnitCost).Scan(&l.ID); err != nil {
			return nil, db.TranslateError(err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (t *txRepo) GetProduct(ctx context.Context, id int64) (inventory.ProductRef, error) {
	var p inventory.ProductRef
	err := t.tx.QueryRow(ctx, `SELECT id, sku, name, is_deleted FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.IsDeleted)
	return p, notFound(err, "product")
}

func (t *txRepo) GetLocation(ctx context.Context, id int64) (inventory.Location, error) {
	var loc inventory.Location
	err := t.tx.QueryRow(ctx, `SELECT id, code, name, is_active, version, is_deleted, created_at, updated_at
FROM inventory_locations WHERE id = $1`, id).
		Scan(&loc.ID, &loc.Code, &loc.Name, &loc.IsActive, &loc.Version, &loc.IsDeleted, &loc.CreatedAt, &loc.UpdatedAt)
	return loc, notFound(err, "location")
}

func (t *txRepo) SupplierActive(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1 AND is_deleted = false)`, id).Scan(&ok)
	return ok, err
}

func (t *txRepo) DraftExists(ctx context.Context, signature string, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM grns WHERE item_signature = $1 AND id <> $2 AND status = 'draft' AND is_deleted = false)`,
		signature, excludeID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertGRN(ctx context.Context, g GoodsReceipt) (GoodsReceipt, error) {
	out, err := scanGRN(t.tx.QueryRow(ctx, `INSERT INTO grns
(grn_number, supplier_id, location_id, status, notes, item_signature, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+grnColumns, g.GRNNumber, g.SupplierID, g.LocationID, string(g.Status), g.Notes, g.ItemSignature, g.CreatedBy))
	if err != nil {
		return GoodsReceipt{}, db.TranslateError(err)
	}
	out.Items, err = t.insertLines(ctx, out.ID, g.Items)
	return out, err
}

func (t *txRepo) GetGRNForUpdate(ctx context.Context, id int64) (GoodsReceipt, error) {
	g, err := scanGRN(t.tx.QueryRow(ctx, `SELECT `+grnColumns+` FROM grns WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return GoodsReceipt{}, notFound(err, "grn")
	}
	g.Items, err = loadLines(ctx, t.tx, id)
	return g, err
}

func (t *txRepo) UpdateDraft(ctx context.Context, g GoodsReceipt) (GoodsReceipt, error) {
	stmt := versioned.Update("grns").
		Set("supplier_id", g.SupplierID).
		Set("location_id", g.LocationID).
		Set("notes", g.Notes).
		Set("item_signature", g.ItemSignature).
		Guard(g.ID, g.Version).
		Where("status = ?", string(GRNStatusDraft)).
		Returning(grnColumns)
	out, err := t.guarded(ctx, stmt)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM grn_items WHERE grn_id = $1`, g.ID); err != nil {
		return GoodsReceipt{}, db.TranslateError(err)
	}
	out.Items, err = t.insertLines(ctx, g.ID, g.Items)
	return out, err
}

func (t *txRepo) SetStatus(ctx context.Context, g GoodsReceipt, from GRNStatus) (GoodsReceipt, error) {
	stmt := versioned.Update("grns").
		Set("status", string(g.Status)).
		Set("verified_by", g.VerifiedBy).
		Set("cancelled_by", g.CancelledBy).
		Set("verified_at", g.VerifiedAt).
		Guard(g.ID, g.Version).
		Where("status = ?", string(from)).
		Returning(grnColumns)
	out, err := t.guarded(ctx, stmt)
	if err != nil {
		return GoodsReceipt{}, err
	}
	out.Items = g.Items
	return out, nil
}

func (t *txRepo) guarded(ctx context.Context, stmt *versioned.Statement) (GoodsReceipt, error) {
	var out GoodsReceipt
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanGRN(row)
		return scanErr
	})
	return out, err
}

// GetGRN loads a live receipt and its lines.
func (r *Repository) GetGRN(ctx context.Context, id int64) (GoodsReceipt, error) {
	g, err := scanGRN(r.pool.QueryRow(ctx, `SELECT `+grnColumns+` FROM grns WHERE id = $1 AND is_deleted = false`, id))
	if err != nil {
		return GoodsReceipt{}, notFound(err, "grn")
	}
	g.Items, err = loadLines(ctx, r.pool, id)
	return g, err
}

// ListGRNs returns receipt headers newest first.
func (r *Repository) ListGRNs(ctx context.Context, filter GRNFilter, page shared.PageRequest) ([]GoodsReceipt, int, error) {
	where := `is_deleted = false AND ($1 = '' OR status = $1) AND ($2 = 0 OR supplier_id = $2) AND ($3 = 0 OR location_id = $3)`
	args := []any{string(filter.Status), filter.SupplierID, filter.LocationID}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM grns WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+grnColumns+` FROM grns WHERE `+where+`
ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []GoodsReceipt{}
	for rows.Next() {
		g, err := scanGRN(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}
