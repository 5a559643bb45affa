package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

func TestTranslateError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "discounts_code_key"})
	err := TranslateError(unique)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, err.Error(), "discounts_code_key")
	assert.True(t, IsUniqueViolation(unique))
	assert.Equal(t, "discounts_code_key", ConstraintName(unique))

	check := &pgconn.PgError{Code: CodeCheckViolation, ConstraintName: "inventory_balances_quantity_check"}
	assert.ErrorIs(t, TranslateError(check), shared.ErrConflict)
	assert.NotErrorIs(t, TranslateError(check), shared.ErrAlreadyExists)

	assert.ErrorIs(t, TranslateError(&pgconn.PgError{Code: CodeSerializationFailure}), shared.ErrConflict)

	plain := errors.New("boom")
	assert.Same(t, plain, TranslateError(plain))
	assert.ErrorIs(t, TranslateError(shared.ErrInsufficientStock), shared.ErrInsufficientStock)
	assert.NoError(t, TranslateError(nil))
}
