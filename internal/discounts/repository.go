package discounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Discount, error)
	List(ctx context.Context, activeOnly bool, page shared.PageRequest) ([]Discount, int, error)
}

type TxRepository interface {
	audit.Writer
	Get(ctx context.Context, id int64) (Discount, error)
	Insert(ctx context.Context, d Discount) (Discount, error)
	Update(ctx context.Context, d Discount) (Discount, error)
	ExpireDue(ctx context.Context, today time.Time) ([]Discount, error)
	ActivateDue(ctx context.Context, today time.Time) ([]Discount, error)
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

const discountColumns = `id, code, description, discount_type, discount_value, start_date, end_date, usage_limit, used_count, is_active, version, is_deleted, created_at, updated_at`

func scanDiscount(row pgx.Row) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.Code, &d.Description, &d.DiscountType, &d.Value, &d.StartDate, &d.EndDate,
		&d.UsageLimit, &d.UsedCount, &d.IsActive, &d.Version, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Discount{}, fmt.Errorf("%w: discount", shared.ErrNotFound)
	}
	return d, err
}

// LockByCode reads a live discount by code and holds its row lock until q
// commits.
func LockByCode(ctx context.Context, q db.DBTX, code string) (Discount, error) {
	return scanDiscount(q.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts
WHERE code = $1 AND is_deleted = false FOR UPDATE`, code))
}

// Redeem increments used_count on a locked discount.
func Redeem(ctx context.Context, q db.DBTX, id int64) (Discount, error) {
	var out Discount
	err := versioned.QueryRow(ctx, q, redeemStatement(id), func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanDiscount(row)
		if errors.Is(scanErr, shared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	if errors.Is(err, shared.ErrVersionConflict) {
		return Discount{}, shared.InvalidStatef("discount usage limit reached")
	}
	return out, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxWriter: audit.TxWriter{Q: tx}, tx: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Discount, error) {
	return scanDiscount(r.pool.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1 AND is_deleted = false`, id))
}

func (r *repository) List(ctx context.Context, activeOnly bool, page shared.PageRequest) ([]Discount, int, error) {
	where := `is_deleted = false AND ($1 = false OR is_active = true)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM discounts WHERE `+where, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts WHERE `+where+`
ORDER BY start_date DESC, id DESC LIMIT $2 OFFSET $3`, activeOnly, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Discount{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (t *txRepository) Get(ctx context.Context, id int64) (Discount, error) {
	return scanDiscount(t.tx.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id))
}

func (t *txRepository) Insert(ctx context.Context, d Discount) (Discount, error) {
	out, err := scanDiscount(t.tx.QueryRow(ctx, `INSERT INTO discounts (
	code, description, discount_type, discount_value, start_date, end_date, usage_limit, is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+discountColumns, d.Code, d.Description, string(d.DiscountType), d.Value, d.StartDate, d.EndDate, d.UsageLimit, d.IsActive))
	if err != nil {
		return Discount{}, db.TranslateError(err)
	}
	return out, nil
}

func (t *txRepository) Update(ctx context.Context, d Discount) (Discount, error) {
	stmt := versioned.Update("discounts").
		Set("code", d.Code).
		Set("description", d.Description).
		Set("discount_type", string(d.DiscountType)).
		Set("discount_value", d.Value).
		Set("start_date", d.StartDate).
		Set("end_date", d.EndDate).
		Set("usage_limit", d.UsageLimit).
		Set("is_active", d.IsActive).
		Set("is_deleted", d.IsDeleted).
		Guard(d.ID, d.Version).
		Returning(discountColumns)
	var out Discount
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanDiscount(row)
		if errors.Is(scanErr, shared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	return out, err
}

func (t *txRepository) ExpireDue(ctx context.Context, today time.Time) ([]Discount, error) {
	return t.batch(ctx, expireDueStatement(today))
}

func (t *txRepository) ActivateDue(ctx context.Context, today time.Time) ([]Discount, error) {
	return t.batch(ctx, activateDueStatement(today))
}

func (t *txRepository) batch(ctx context.Context, stmt *versioned.Statement) ([]Discount, error) {
	var out []Discount
	err := versioned.Query(ctx, t.tx, stmt, func(rows pgx.Rows) error {
		d, err := scanDiscount(rows)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}
