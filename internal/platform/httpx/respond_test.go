package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrVersionConflict, http.StatusConflict},
		{fmt.Errorf("wrap: %w", shared.ErrDuplicate), http.StatusConflict},
		{shared.ErrInsufficientStock, http.StatusConflict},
		{shared.InvalidStatef("transfer is completed"), http.StatusUnprocessableEntity},
		{shared.Validationf("quantity must be positive"), http.StatusBadRequest},
		{shared.ErrForbidden, http.StatusForbidden},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err, status := tc.err, tc.status
		rr := httptest.NewRecorder()
		RespondError(rr, err)
		assert.Equal(t, status, rr.Code, err.Error())
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, status, body.Status)
	}
}

func TestDecodeAndValidate(t *testing.T) {
	type payload struct {
		Code     string `json:"code" validate:"required"`
		Quantity int64  `json:"quantity" validate:"gt=0"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"x","quantity":0}`))
	var p payload
	err := DecodeAndValidate(req, &p)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "quantity:gt")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"x","quantity":3,"extra":1}`))
	require.ErrorIs(t, DecodeAndValidate(req, &p), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"x","quantity":3}`))
	require.NoError(t, DecodeAndValidate(req, &p))
	assert.Equal(t, int64(3), p.Quantity)
}
