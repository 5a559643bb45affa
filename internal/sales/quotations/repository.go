package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/customers"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Quotation, error)
	List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Quotation, int, error)
}

type TxRepository interface {
	audit.Writer
	Customer(ctx context.Context, id int64) (customers.Customer, error)
	ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
	// DuplicateExists reports a live draft/approved quotation for the same
	// customer and item signature, ignoring excludeID.
	DuplicateExists(ctx context.Context, customerID int64, signature string, excludeID int64) (bool, error)
	Get(ctx context.Context, id int64) (Quotation, error)
	Insert(ctx context.Context, q Quotation) (Quotation, error)
	// UpdateDraft rewrites header and items of a draft, guarded by q.Version.
	UpdateDraft(ctx context.Context, q Quotation) (Quotation, error)
	// SetStatus writes q.Status, q.ApprovedBy and q.IsDeleted, guarded by
	// q.Version and the expected current status.
	SetStatus(ctx context.Context, q Quotation, from Status) (Quotation, error)
	Expire(ctx context.Context, id, version int64, today time.Time) (Quotation, error)
	ExpireDue(ctx context.Context, today time.Time) ([]Quotation, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	audit.TxWriter
	tx pgx.Tx
}

const quotationColumns = `id, quotation_number, customer_id, status, valid_until, is_inter_state, tax_rate, subtotal, tax_amount, cgst, sgst, igst, total_amount, notes, item_signature, created_by, approved_by, version, is_deleted, created_at, updated_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.QuotationNumber, &q.CustomerID, &q.Status, &q.ValidUntil, &q.IsInterState,
		&q.TaxRate, &q.Subtotal, &q.TaxAmount, &q.CGST, &q.SGST, &q.IGST, &q.TotalAmount, &q.Notes,
		&q.ItemSignature, &q.CreatedBy, &q.ApprovedBy, &q.Version, &q.IsDeleted, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, fmt.Errorf("%w: quotation", coreshared.ErrNotFound)
	}
	return q, err
}

// Load reads a quotation and its items through q.
func Load(ctx context.Context, q db.DBTX, id int64) (Quotation, error) {
	out, err := scanQuotation(q.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
	if err != nil {
		return Quotation{}, err
	}
	out.Items, err = loadItems(ctx, q, id)
	return out, err
}

func loadItems(ctx context.Context, q db.DBTX, quotationID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, quantity, unit_price, line_total
FROM quotation_items WHERE quotation_id = $1 ORDER BY id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func insertItems(ctx context.Context, tx pgx.Tx, quotationID int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if err := tx.QueryRow(ctx, `INSERT INTO quotation_items (quotation_id, product_id, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, quotationID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal).Scan(&it.ID); err != nil {
			return nil, db.TranslateError(err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxWriter: audit.TxWriter{Q: tx}, tx: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Quotation, error) {
	q, err := Load(ctx, r.pool, id)
	if err != nil {
		return Quotation{}, err
	}
	if q.IsDeleted {
		return Quotation{}, coreshared.ErrNotFound
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Quotation, int, error) {
	where := `is_deleted = false AND ($1 = '' OR status = $1) AND ($2 = 0 OR customer_id = $2)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations WHERE `+where, string(filter.Status), filter.CustomerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE `+where+`
ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`, string(filter.Status), filter.CustomerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Quotation{}
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

func (t *txRepository) Customer(ctx context.Context, id int64) (customers.Customer, error) {
	return customers.Load(ctx, t.tx, id)
}

func (t *txRepository) ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT price FROM products WHERE id = $1 AND is_deleted = false`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: product %d", coreshared.ErrNotFound, productID)
	}
	return price, err
}

func (t *txRepository) DuplicateExists(ctx context.Context, customerID int64, signature string, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM quotations
	WHERE customer_id = $1 AND item_signature = $2 AND id <> $3
	  AND is_deleted = false AND status IN ('draft', 'approved')
)`, customerID, signature, excludeID).Scan(&exists)
	return exists, err
}

func (t *txRepository) Get(ctx context.Context, id int64) (Quotation, error) {
	return Load(ctx, t.tx, id)
}

func (t *txRepository) Insert(ctx context.Context, q Quotation) (Quotation, error) {
	out, err := scanQuotation(t.tx.QueryRow(ctx, `INSERT INTO quotations (
	quotation_number, customer_id, status, valid_until, is_inter_state, tax_rate, subtotal,
	tax_amount, cgst, sgst, igst, total_amount, notes, item_signature, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING `+quotationColumns,
		q.QuotationNumber, q.CustomerID, string(q.Status), q.ValidUntil, q.IsInterState, q.TaxRate, q.Subtotal,
		q.TaxAmount, q.CGST, q.SGST, q.IGST, q.TotalAmount, q.Notes, q.ItemSignature, q.CreatedBy))
	if err != nil {
		return Quotation{}, db.TranslateError(err)
	}
	out.Items, err = insertItems(ctx, t.tx, out.ID, q.Items)
	return out, err
}

func (t *txRepository) UpdateDraft(ctx context.Context, q Quotation) (Quotation, error) {
	stmt := versioned.Update("quotations").
		Set("valid_until", q.ValidUntil).
		Set("is_inter_state", q.IsInterState).
		Set("tax_rate", q.TaxRate).
		Set("subtotal", q.Subtotal).
		Set("tax_amount", q.TaxAmount).
		Set("cgst", q.CGST).
		Set("sgst", q.SGST).
		Set("igst", q.IGST).
		Set("total_amount", q.TotalAmount).
		Set("notes", q.Notes).
		Set("item_signature", q.ItemSignature).
		Guard(q.ID, q.Version).
		Where("status = ?", string(StatusDraft)).
		Returning(quotationColumns)
	out, err := t.guarded(ctx, stmt)
	if err != nil {
		return Quotation{}, err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, q.ID); err != nil {
		return Quotation{}, db.TranslateError(err)
	}
	out.Items, err = insertItems(ctx, t.tx, q.ID, q.Items)
	return out, err
}

func (t *txRepository) SetStatus(ctx context.Context, q Quotation, from Status) (Quotation, error) {
	stmt := versioned.Update("quotations").
		Set("status", string(q.Status)).
		Set("approved_by", q.ApprovedBy).
		Set("is_deleted", q.IsDeleted).
		Guard(q.ID, q.Version).
		Where("status = ?", string(from)).
		Returning(quotationColumns)
	out, err := t.guarded(ctx, stmt)
	if err != nil {
		return Quotation{}, err
	}
	out.Items = q.Items
	return out, nil
}

func (t *txRepository) Expire(ctx context.Context, id, version int64, today time.Time) (Quotation, error) {
	return t.guarded(ctx, expireOneStatement(id, version, today))
}

func (t *txRepository) ExpireDue(ctx context.Context, today time.Time) ([]Quotation, error) {
	var out []Quotation
	err := versioned.Query(ctx, t.tx, expireDueStatement(today), func(rows pgx.Rows) error {
		q, err := scanQuotation(rows)
		if err != nil {
			return err
		}
		out = append(out, q)
		return nil
	})
	return out, err
}

func (t *txRepository) guarded(ctx context.Context, stmt *versioned.Statement) (Quotation, error) {
	var out Quotation
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanQuotation(row)
		if errors.Is(scanErr, coreshared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	return out, err
}
