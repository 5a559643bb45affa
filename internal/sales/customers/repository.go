package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/masterdata/shared"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
}

type TxRepository interface {
	audit.Writer
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

type txRepository struct {
	audit.TxWriter
	tx pgx.Tx
}

// Columns is the select list understood by Scan.
const Columns = `id, name, email, phone, gstin, state, address, version, is_deleted, created_at, updated_at`

var sortColumns = map[string]string{"name": "name", "state": "state", "created": "created_at"}

// Scan reads one customer row selected with Columns.
func Scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.GSTIN, &c.State, &c.Address,
		&c.Version, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer", coreshared.ErrNotFound)
	}
	return c, err
}

// Load reads a live customer through q; other documents use it inside
// their own transactions.
func Load(ctx context.Context, q db.DBTX, id int64) (Customer, error) {
	return Scan(q.QueryRow(ctx, `SELECT `+Columns+` FROM customers WHERE id = $1 AND is_deleted = false`, id))
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxWriter: audit.TxWriter{Q: tx}, tx: tx})
	})
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	search := "%" + filters.Search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers
WHERE is_deleted = false AND (name ILIKE $1 OR COALESCE(phone, '') ILIKE $1 OR COALESCE(email, '') ILIKE $1)`, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+Columns+` FROM customers
WHERE is_deleted = false AND (name ILIKE $1 OR COALESCE(phone, '') ILIKE $1 OR COALESCE(email, '') ILIKE $1)
ORDER BY `+shared.OrderBy(filters.SortBy, filters.SortDir, sortColumns, "name")+`
LIMIT $2 OFFSET $3`, search, filters.PageSize(), filters.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Customer{}
	for rows.Next() {
		c, err := Scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	return Load(ctx, r.db, id)
}

func (t *txRepository) Get(ctx context.Context, id int64) (Customer, error) {
	return Scan(t.tx.QueryRow(ctx, `SELECT `+Columns+` FROM customers WHERE id = $1`, id))
}

func (t *txRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	out, err := Scan(t.tx.QueryRow(ctx, `INSERT INTO customers (name, email, phone, gstin, state, address)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+Columns, c.Name, c.Email, c.Phone, c.GSTIN, c.State, c.Address))
	if err != nil {
		return Customer{}, db.TranslateError(err)
	}
	return out, nil
}

func (t *txRepository) Update(ctx context.Context, c Customer) (Customer, error) {
	stmt := versioned.Update("customers").
		Set("name", c.Name).
		Set("email", c.Email).
		Set("phone", c.Phone).
		Set("gstin", c.GSTIN).
		Set("state", c.State).
		Set("address", c.Address).
		Set("is_deleted", c.IsDeleted).
		Guard(c.ID, c.Version).
		Returning(Columns)
	var out Customer
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = Scan(row)
		if errors.Is(scanErr, coreshared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	return out, err
}
