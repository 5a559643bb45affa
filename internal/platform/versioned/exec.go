package versioned

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// QueryRow executes a guarded statement expected to touch exactly one row.
// No returned row means the document was concurrently modified or deleted.
func QueryRow(ctx context.Context, q db.DBTX, stmt *Statement, scan func(pgx.Row) error) error {
	sql, args := stmt.Build()
	err := scan(q.QueryRow(ctx, sql, args...))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.ErrVersionConflict
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w (%s)", shared.ErrAlreadyExists, db.ConstraintName(err))
	default:
		return db.TranslateError(err)
	}
}

// Query executes a batch statement and scans every returned row.
func Query(ctx context.Context, q db.DBTX, stmt *Statement, scan func(pgx.Rows) error) error {
	sql, args := stmt.Build()
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return db.TranslateError(err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return db.TranslateError(rows.Err())
}
