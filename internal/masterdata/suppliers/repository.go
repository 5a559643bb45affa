package suppliers

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
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
}

type TxRepository interface {
	audit.Writer
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, s Supplier) (Supplier, error)
	Update(ctx context.Context, s Supplier) (Supplier, error)
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

const supplierColumns = `id, name, email, phone, gstin, address, version, is_deleted, created_at, updated_at`

var sortColumns = map[string]string{"name": "name", "created": "created_at"}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.GSTIN, &s.Address,
		&s.Version, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("%w: supplier", coreshared.ErrNotFound)
	}
	return s, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxWriter: audit.TxWriter{Q: tx}, tx: tx})
	})
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	search := "%" + filters.Search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers
WHERE is_deleted = false AND (name ILIKE $1 OR gstin ILIKE $1)`, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE is_deleted = false AND (name ILIKE $1 OR gstin ILIKE $1)
ORDER BY `+shared.OrderBy(filters.SortBy, filters.SortDir, sortColumns, "name")+`
LIMIT $2 OFFSET $3`, search, filters.PageSize(), filters.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	return scanSupplier(r.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND is_deleted = false`, id))
}

func (t *txRepository) Get(ctx context.Context, id int64) (Supplier, error) {
	return scanSupplier(t.tx.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
}

func (t *txRepository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	out, err := scanSupplier(t.tx.QueryRow(ctx, `INSERT INTO suppliers (name, email, phone, gstin, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+supplierColumns, s.Name, s.Email, s.Phone, s.GSTIN, s.Address))
	if err != nil {
		return Supplier{}, db.TranslateError(err)
	}
	return out, nil
}

func (t *txRepository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	stmt := versioned.Update("suppliers").
		Set("name", s.Name).
		Set("email", s.Email).
		Set("phone", s.Phone).
		Set("gstin", s.GSTIN).
		Set("address", s.Address).
		Set("is_deleted", s.IsDeleted).
		Guard(s.ID, s.Version).
		Returning(supplierColumns)
	var out Supplier
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanSupplier(row)
		if errors.Is(scanErr, coreshared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	return out, err
}
