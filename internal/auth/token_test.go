package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/users"
)

func TestIssueParseRoundTrip(t *testing.T) {
	svc, err := NewTokenService("0123456789abcdef0123456789abcdef", "billing", time.Hour)
	require.NoError(t, err)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	raw, issued, err := svc.Issue(users.User{ID: 12, Username: "kavya", Role: shared.RoleInventory})
	require.NoError(t, err)
	assert.Len(t, issued.ID, 36)

	claims, err := svc.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, shared.Actor{ID: 12, Username: "kavya", Role: shared.RoleInventory}, claims.Actor())
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "12", claims.Subject)

	svc.now = func() time.Time { return base.Add(61 * time.Minute) }
	_, err = svc.Parse(raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	svc.now = func() time.Time { return base }
	svc.issuer = "someone-else"
	_, err = svc.Parse(raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
