package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LedgerTx
	GetProduct(ctx context.Context, id int64) (ProductRef, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	InsertLocation(ctx context.Context, loc Location) (Location, error)
	// UpdateLocation writes loc guarded by loc.Version.
	UpdateLocation(ctx context.Context, loc Location) (Location, error)
	CurrentQuantity(ctx context.Context, productID, locationID int64) (int64, error)
	PendingTransferExists(ctx context.Context, signature string) (bool, error)
	InsertTransfer(ctx context.Context, t StockTransfer) (StockTransfer, error)
	GetTransferForUpdate(ctx context.Context, id int64) (StockTransfer, error)
	// UpdateTransferStatus writes the status fields guarded by t.Version.
	UpdateTransferStatus(ctx context.Context, t StockTransfer) (StockTransfer, error)
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	*SQLLedger
	tx pgx.Tx
}

// WithTx executes the callback inside one database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{SQLLedger: NewSQLLedger(tx), tx: tx})
	})
}

const locationColumns = `id, code, name, is_active, version, is_deleted, created_at, updated_at`

func scanLocation(row pgx.Row) (Location, error) {
	var loc Location
	err := row.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.IsActive, &loc.Version, &loc.IsDeleted, &loc.CreatedAt, &loc.UpdatedAt)
	return loc, err
}

const transferColumns = `id, product_id, quantity, from_location_id, to_location_id, status, note, item_signature,
transferred_by, completed_by, cancelled_by, completed_at, cancelled_at, version, is_deleted, created_at, updated_at`

func scanTransfer(row pgx.Row) (StockTransfer, error) {
	var (
		t      StockTransfer
		status string
	)
	err := row.Scan(&t.ID, &t.ProductID, &t.Quantity, &t.FromLocationID, &t.ToLocationID, &status, &t.Note, &t.ItemSignature,
		&t.TransferredBy, &t.CompletedBy, &t.CancelledBy, &t.CompletedAt, &t.CancelledAt, &t.Version, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	t.Status = TransferStatus(status)
	return t, err
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, what)
	}
	return err
}

func (t *txRepository) GetProduct(ctx context.Context, id int64) (ProductRef, error) {
	var p ProductRef
	err := t.tx.QueryRow(ctx, `SELECT id, sku, name, is_deleted FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.IsDeleted)
	return p, notFound(err, "product")
}

func (t *txRepository) GetLocation(ctx context.Context, id int64) (Location, error) {
	loc, err := scanLocation(t.tx.QueryRow(ctx, `SELECT `+locationColumns+` FROM inventory_locations WHERE id = $1`, id))
	return loc, notFound(err, "location")
}

func (t *txRepository) InsertLocation(ctx context.Context, loc Location) (Location, error) {
	out, err := scanLocation(t.tx.QueryRow(ctx, `INSERT INTO inventory_locations (code, name, is_active)
VALUES ($1, $2, $3)
RETURNING `+locationColumns, loc.Code, loc.Name, loc.IsActive))
	if err != nil {
		return Location{}, db.TranslateError(err)
	}
	return out, nil
}

func (t *txRepository) UpdateLocation(ctx context.Context, loc Location) (Location, error) {
	stmt := versioned.Update("inventory_locations").
		Set("code", loc.Code).
		Set("name", loc.Name).
		Set("is_active", loc.IsActive).
		Guard(loc.ID, loc.Version).
		Returning(locationColumns)
	var out Location
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanLocation(row)
		return scanErr
	})
	return out, err
}

func (t *txRepository) CurrentQuantity(ctx context.Context, productID, locationID int64) (int64, error) {
	var qty int64
	err := t.tx.QueryRow(ctx, `SELECT quantity FROM inventory_balances WHERE product_id = $1 AND location_id = $2`,
		productID, locationID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (t *txRepository) PendingTransferExists(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM stock_transfers WHERE item_signature = $1 AND status = 'pending' AND is_deleted = false)`, signature).Scan(&exists)
	return exists, err
}

func (t *txRepository) InsertTransfer(ctx context.Context, in StockTransfer) (StockTransfer, error) {
	out, err := scanTransfer(t.tx.QueryRow(ctx, `INSERT INTO stock_transfers
(product_id, quantity, from_location_id, to_location_id, status, note, item_signature, transferred_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+transferColumns, in.ProductID, in.Quantity, in.FromLocationID, in.ToLocationID, string(in.Status), in.Note,
		in.ItemSignature, in.TransferredBy))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return StockTransfer{}, fmt.Errorf("%w: identical transfer already pending", shared.ErrDuplicate)
		}
		return StockTransfer{}, db.TranslateError(err)
	}
	return out, nil
}

func (t *txRepository) GetTransferForUpdate(ctx context.Context, id int64) (StockTransfer, error) {
	out, err := scanTransfer(t.tx.QueryRow(ctx, `SELECT `+transferColumns+`
FROM stock_transfers WHERE id = $1 AND is_deleted = false FOR UPDATE`, id))
	return out, notFound(err, "stock transfer")
}

func (t *txRepository) UpdateTransferStatus(ctx context.Context, in StockTransfer) (StockTransfer, error) {
	stmt := versioned.Update("stock_transfers").
		Set("status", string(in.Status)).
		Set("completed_by", in.CompletedBy).
		Set("cancelled_by", in.CancelledBy).
		Set("completed_at", in.CompletedAt).
		Set("cancelled_at", in.CancelledAt).
		Guard(in.ID, in.Version).
		Returning(transferColumns)
	var out StockTransfer
	err := versioned.QueryRow(ctx, t.tx, stmt, func(row pgx.Row) error {
		var scanErr error
		out, scanErr = scanTransfer(row)
		return scanErr
	})
	return out, err
}

// GetTransfer loads a transfer without locking.
func (r *Repository) GetTransfer(ctx context.Context, id int64) (StockTransfer, error) {
	out, err := scanTransfer(r.pool.QueryRow(ctx, `SELECT `+transferColumns+`
FROM stock_transfers WHERE id = $1 AND is_deleted = false`, id))
	return out, notFound(err, "stock transfer")
}

// ListTransfers returns transfers newest first.
func (r *Repository) ListTransfers(ctx context.Context, filter TransferFilter) ([]StockTransfer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var status *string
	if filter.Status != "" {
		s := string(filter.Status)
		status = &s
	}
	var product *int64
	if filter.ProductID > 0 {
		product = &filter.ProductID
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transferColumns+`
FROM stock_transfers
WHERE is_deleted = false
  AND ($1::text IS NULL OR status = $1)
  AND ($2::bigint IS NULL OR product_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, status, product, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StockTransfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListLocations returns live locations ordered by code.
func (r *Repository) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+locationColumns+` FROM inventory_locations WHERE is_deleted = false ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// ListBalances returns current balances.
func (r *Repository) ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	var product, location *int64
	if filter.ProductID > 0 {
		product = &filter.ProductID
	}
	if filter.LocationID > 0 {
		location = &filter.LocationID
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, location_id, quantity, updated_at
FROM inventory_balances
WHERE ($1::bigint IS NULL OR product_id = $1)
  AND ($2::bigint IS NULL OR location_id = $2)
ORDER BY product_id, location_id`, product, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Balance{}
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ProductID, &b.LocationID, &b.Quantity, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListMovements returns the ledger for a pair, oldest first.
func (r *Repository) ListMovements(ctx context.Context, productID, locationID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, location_id, quantity_change, movement_type, reference_type,
reference_id, note, actor_id, actor_name, created_at
FROM inventory_movements
WHERE product_id = $1 AND location_id = $2
ORDER BY created_at ASC, id ASC
LIMIT $3`, productID, locationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Movement{}
	for rows.Next() {
		var (
			m             Movement
			mvType, refTy string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.LocationID, &m.QuantityChange, &mvType, &refTy,
			&m.ReferenceID, &m.Note, &m.ActorID, &m.ActorName, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MovementType = MovementType(mvType)
		m.ReferenceType = ReferenceType(refTy)
		out = append(out, m)
	}
	return out, rows.Err()
}

// StockSummary groups balances by the godown and showroom locations.
func (r *Repository) StockSummary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name,
  COALESCE(SUM(b.quantity) FILTER (WHERE l.code = $1), 0) AS godown,
  COALESCE(SUM(b.quantity) FILTER (WHERE l.code = $2), 0) AS showroom
FROM products p
LEFT JOIN inventory_balances b ON b.product_id = p.id
LEFT JOIN inventory_locations l ON l.id = b.location_id
WHERE p.is_deleted = false
GROUP BY p.id, p.sku, p.name
ORDER BY p.sku`, LocationGodown, LocationShowroom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SummaryRow{}
	for rows.Next() {
		var s SummaryRow
		if err := rows.Scan(&s.ProductID, &s.SKU, &s.Name, &s.Godown, &s.Showroom); err != nil {
			return nil, err
		}
		s.Total = s.Godown + s.Showroom
		out = append(out, s)
	}
	return out, rows.Err()
}
