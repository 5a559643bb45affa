package products

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
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	LowStock(ctx context.Context) ([]LowStockRow, error)
}

type TxRepository interface {
	audit.Writer
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	// Update writes product guarded by product.Version.
	Update(ctx context.Context, product Product) (Product, error)
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

const productColumns = `id, sku, name, description, price, min_stock_threshold, supplier_id, version, is_deleted, created_at, updated_at`

var sortColumns = map[string]string{"sku": "sku", "name": "name", "price": "price", "created": "created_at"}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.MinStockThreshold, &p.SupplierID,
		&p.Version, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product", coreshared.ErrNotFound)
	}
	return p, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxWriter: audit.TxWriter{Q: tx}, tx: tx})
	})
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	search := "%" + filters.Search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products
WHERE is_deleted = false AND (sku ILIKE $1 OR name ILIKE $1)`, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE is_deleted = false AND (sku ILIKE $1 OR name ILIKE $1)
ORDER BY `+shared.OrderBy(filters.SortBy, filters.SortDir, sortColumns, "sku")+`
LIMIT $2 OFFSET $3`, search, filters.PageSize(), filters.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND is_deleted = false`, id))
}

func (r *repository) LowStock(ctx context.Context) ([]LowStockRow, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.sku, p.name, COALESCE(SUM(b.quantity), 0) AS on_hand, p.min_stock_threshold
FROM products p
LEFT JOIN inventory_balances b ON b.product_id = p.id
WHERE p.is_deleted = false
GROUP BY p.id, p.sku, p.name, p.min_stock_threshold
HAVING COALESCE(SUM(b.quantity), 0) < p.min_stock_threshold
ORDER BY p.sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LowStockRow{}
	for rows.Next() {
		var row LowStockRow
		if err := rows.Scan(&row.ProductID, &row.SKU, &row.Name, &row.OnHand, &row.MinStockThreshold); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (t *txRepository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (t *txRepository) Create(ctx context.Context, p Product) (Product, error) {
	out, err := scanProduct(t.tx.QueryRow(ctx, `INSERT INTO products (sku, name, description, price, min_stock_threshold, supplier_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+productColumns, p.SKU, p.Name, p.Description, p.Price, p.MinStockThreshold, p.SupplierID))
	if err != nil {
		return Product{}, db.TranslateError(err)
	}
	return out, nil
}

func (t *txRepository) Update(ctx context.Context, p Product) (Product, error) {
	stmt := versioned.Update("products").
		Set("sku", p.SKU).
		Set("name", p.Name).
		Set("description", p.Description).
		Set("price", p.Price).
		Set("min_stock_threshold", p.MinStockThreshold).
		Set("supplier_id", p.SupplierID).
		Set("is_deleted", p.IsDeleted).
		Guard(p.ID, p.Version).
		Returning(productColumns)
	var out Product
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanProduct(row)
		if errors.Is(scanErr, coreshared.ErrNotFound) {
			return pgx.ErrNoRows
		}
		return scanErr
	})
	return out, err
}
