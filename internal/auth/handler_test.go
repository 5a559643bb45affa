package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/auth"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/users"
)

const secret = "0123456789abcdef0123456789abcdef"

type stubUsers struct {
	users map[string]users.User
}

func (s *stubUsers) FindByUsername(ctx context.Context, username string) (users.User, error) {
	u, ok := s.users[username]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

type activityLog struct{ rows []audit.Activity }

func (a *activityLog) InsertActivity(ctx context.Context, row audit.Activity) error {
	a.rows = append(a.rows, row)
	return nil
}

type fixture struct {
	mr       *miniredis.Miniredis
	tokens   *auth.TokenService
	svc      *auth.Service
	activity *activityLog
	router   http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	finder := &stubUsers{users: map[string]users.User{
		"anita":  {ID: 5, Username: "anita", Role: shared.RoleAccounts, PasswordHash: string(hash), IsActive: true},
		"former": {ID: 6, Username: "former", Role: shared.RoleSales, PasswordHash: string(hash)},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := auth.NewTokenService(secret, "billing", 15*time.Minute)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	activity := &activityLog{}
	svc := auth.NewService(finder, tokens, auth.NewRevocationStore(client, ""), activity, logger)

	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(logger, svc).MountRoutes)
	r.With(auth.Middleware(svc)).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := shared.ActorFromContext(r.Context())
		_, _ = io.WriteString(w, actor.Username+"/"+actor.Role)
	})
	return fixture{mr: mr, tokens: tokens, svc: svc, activity: activity, router: r}
}

func (f fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/login", "", `{"username":"anita","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	require.Len(t, f.activity.rows, 1)
	assert.Equal(t, "anita signed in", f.activity.rows[0].Message)

	rec = f.do(http.MethodGet, "/me", resp.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anita/accounts", rec.Body.String())

	rec = f.do(http.MethodPost, "/auth/logout", resp.AccessToken, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/me", resp.AccessToken, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	claims, err := f.tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	ttl := f.mr.TTL("auth:revoked:" + claims.ID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 15*time.Minute)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]string{
		"wrong password": `{"username":"anita","password":"nope-nope"}`,
		"unknown user":   `{"username":"ghost","password":"correct-horse"}`,
		"inactive user":  `{"username":"former","password":"correct-horse"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/auth/login", "", body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/auth/login", "", `{"username":"anita"}`).Code)
	assert.Empty(t, f.activity.rows)
}

func TestMiddlewareRejectsMissingOrForeignTokens(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/me", "not-a-jwt", "").Code)

	other, err := auth.NewTokenService("ffffffffffffffffffffffffffffffff", "billing", time.Minute)
	require.NoError(t, err)
	forged, _, err := other.Issue(users.User{ID: 5, Username: "anita", Role: shared.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/me", forged, "").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic YW5pdGE6eA==")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenServiceRequiresLongSecret(t *testing.T) {
	_, err := auth.NewTokenService("short", "billing", time.Minute)
	require.Error(t, err)
}
