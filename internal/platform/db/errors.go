package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// PostgreSQL SQLSTATE codes translated into the domain taxonomy.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeCheckViolation       = "23514"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == CodeUniqueViolation
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// TranslateError maps storage integrity failures into shared sentinels so
// callers never see driver detail. Errors already in the taxonomy pass through.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case CodeUniqueViolation:
		return fmt.Errorf("%w (%s)", shared.ErrAlreadyExists, pgErr.ConstraintName)
	case CodeForeignKeyViolation, CodeCheckViolation:
		return fmt.Errorf("%w: integrity check %s", shared.ErrConflict, pgErr.ConstraintName)
	case CodeSerializationFailure, CodeDeadlockDetected:
		return fmt.Errorf("%w: concurrent update, retry", shared.ErrConflict)
	default:
		return err
	}
}
