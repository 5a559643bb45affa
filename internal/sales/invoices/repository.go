package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/discounts"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/customers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/quotations"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Invoice, int, error)
}

type TxRepository interface {
	audit.Writer
	Customer(ctx context.Context, id int64) (customers.Customer, error)
	ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
	Quotation(ctx context.Context, id int64) (quotations.Quotation, error)
	// MarkQuotation moves the source quotation between statuses.
	MarkQuotation(ctx context.Context, id int64, from, to quotations.Status) error
	DuplicateDraftExists(ctx context.Context, customerID int64, signature string, excludeID int64) (bool, error)
	// GetForUpdate reads the invoice and holds its row lock.
	GetForUpdate(ctx context.Context, id int64) (Invoice, error)
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateDraft(ctx context.Context, inv Invoice) (Invoice, error)
	// Save writes status, discount and payment totals guarded by inv.Version
	// and the expected current status.
	Save(ctx context.Context, inv Invoice, from Status) (Invoice, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	LockDiscount(ctx context.Context, code string) (discounts.Discount, error)
	RedeemDiscount(ctx context.Context, id int64) (discounts.Discount, error)
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

const invoiceColumns = `id, invoice_number, customer_id, quotation_id, status, is_inter_state, tax_rate, gross_amount, discount_id, discount_amount, tax_amount, cgst, sgst, igst, net_amount, total_paid, balance_due, customer_snapshot, item_signature, created_by, verified_by, version, is_deleted, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.QuotationID, &inv.Status, &inv.IsInterState,
		&inv.TaxRate, &inv.GrossAmount, &inv.DiscountID, &inv.DiscountAmount, &inv.TaxAmount, &inv.CGST, &inv.SGST,
		&inv.IGST, &inv.NetAmount, &inv.TotalPaid, &inv.BalanceDue, &inv.CustomerSnapshot, &inv.ItemSignature,
		&inv.CreatedBy, &inv.VerifiedBy, &inv.Version, &inv.IsDeleted, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("%w: invoice", coreshared.ErrNotFound)
	}
	return inv, err
}

func loadChildren(ctx context.Context, q db.DBTX, inv *Invoice) error {
	rows, err := q.Query(ctx, `SELECT id, product_id, quantity, unit_price, line_total
FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return err
	}
	inv.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			rows.Close()
			return err
		}
		inv.Items = append(inv.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx, `SELECT id, invoice_id, amount, payment_method, reference, received_by, created_at
FROM payments WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return err
		}
		inv.Payments = append(inv.Payments, p)
	}
	return rows.Err()
}

func insertItems(ctx context.Context, tx pgx.Tx, invoiceID int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if err := tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, invoiceID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal).Scan(&it.ID); err != nil {
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

func (r *repository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND is_deleted = false`, id))
	if err != nil {
		return Invoice{}, err
	}
	return inv, loadChildren(ctx, r.pool, &inv)
}

func (r *repository) List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Invoice, int, error) {
	where := `is_deleted = false AND ($1 = '' OR status = $1) AND ($2 = 0 OR customer_id = $2)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, string(filter.Status), filter.CustomerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE `+where+`
ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`, string(filter.Status), filter.CustomerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
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

func (t *txRepository) Quotation(ctx context.Context, id int64) (quotations.Quotation, error) {
	return quotations.Load(ctx, t.tx, id)
}

func (t *txRepository) MarkQuotation(ctx context.Context, id int64, from, to quotations.Status) error {
	return versioned.QueryRow(ctx, t.tx, quotations.StatusStatement(id, from, to), func(row pgx.Row) error {
		var got int64
		return row.Scan(&got)
	})
}

func (t *txRepository) DuplicateDraftExists(ctx context.Context, customerID int64, signature string, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM invoices
	WHERE customer_id = $1 AND item_signature = $2 AND id <> $3
	  AND is_deleted = false AND status = 'draft'
)`, customerID, signature, excludeID).Scan(&exists)
	return exists, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Invoice{}, err
	}
	return inv, loadChildren(ctx, t.tx, &inv)
}

func (t *txRepository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	out, err := scanInvoice(t.tx.QueryRow(ctx, `INSERT INTO invoices (
	invoice_number, customer_id, quotation_id, status, is_inter_state, tax_rate, gross_amount,
	discount_amount, tax_amount, cgst, sgst, igst, net_amount, total_paid, balance_due,
	customer_snapshot, item_signature, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING `+invoiceColumns,
		inv.InvoiceNumber, inv.CustomerID, inv.QuotationID, string(inv.Status), inv.IsInterState, inv.TaxRate,
		inv.GrossAmount, inv.DiscountAmount, inv.TaxAmount, inv.CGST, inv.SGST, inv.IGST, inv.NetAmount,
		inv.TotalPaid, inv.BalanceDue, inv.CustomerSnapshot, inv.ItemSignature, inv.CreatedBy))
	if err != nil {
		return Invoice{}, db.TranslateError(err)
	}
	out.Items, err = insertItems(ctx, t.tx, out.ID, inv.Items)
	return out, err
}

func (t *txRepository) UpdateDraft(ctx context.Context, inv Invoice) (Invoice, error) {
	out, err := t.Save(ctx, inv, StatusDraft)
	if err != nil {
		return Invoice{}, err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return Invoice{}, db.TranslateError(err)
	}
	out.Items, err = insertItems(ctx, t.tx, inv.ID, inv.Items)
	return out, err
}

func (t *txRepository) Save(ctx context.Context, inv Invoice, from Status) (Invoice, error) {
	stmt := versioned.Update("invoices").
		Set("status", string(inv.Status)).
		Set("gross_amount", inv.GrossAmount).
		Set("discount_id", inv.DiscountID).
		Set("discount_amount", inv.DiscountAmount).
		Set("tax_amount", inv.TaxAmount).
		Set("cgst", inv.CGST).
		Set("sgst", inv.SGST).
		Set("igst", inv.IGST).
		Set("net_amount", inv.NetAmount).
		Set("total_paid", inv.TotalPaid).
		Set("balance_due", inv.BalanceDue).
		Set("item_signature", inv.ItemSignature).
		Set("verified_by", inv.VerifiedBy).
		Guard(inv.ID, inv.Version).
		Where("status = ?", string(from)).
		Returning(invoiceColumns)
	var out Invoice
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanInvoice(row)
		if errors.Is(scanErr, coreshared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	if err != nil {
		return Invoice{}, err
	}
	out.Items = inv.Items
	out.Payments = inv.Payments
	return out, nil
}

func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (invoice_id, amount, payment_method, reference, received_by)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.InvoiceID, p.Amount, string(p.Method), p.Reference, p.ReceivedBy).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Payment{}, db.TranslateError(err)
	}
	return p, nil
}

func (t *txRepository) LockDiscount(ctx context.Context, code string) (discounts.Discount, error) {
	return discounts.LockByCode(ctx, t.tx, code)
}

func (t *txRepository) RedeemDiscount(ctx context.Context, id int64) (discounts.Discount, error) {
	return discounts.Redeem(ctx, t.tx, id)
}
