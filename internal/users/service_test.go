package users

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	users      map[string]User
	activities []audit.Activity
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, r)
}

func (r *memoryRepo) InsertActivity(ctx context.Context, a audit.Activity) error {
	r.activities = append(r.activities, a)
	return nil
}

func (r *memoryRepo) InsertUser(ctx context.Context, u User) (User, error) {
	if _, ok := r.users[u.Username]; ok {
		return User{}, fmt.Errorf("%w (users_username_key)", shared.ErrAlreadyExists)
	}
	u.ID = int64(len(r.users) + 1)
	r.users[u.Username] = u
	return u, nil
}

func (r *memoryRepo) FindByUsername(ctx context.Context, username string) (User, error) {
	u, ok := r.users[username]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := []User{}
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

var admin = shared.Actor{ID: 1, Username: "root", Role: shared.RoleAdmin}

func newTestService() (*Service, *memoryRepo) {
	repo := &memoryRepo{users: map[string]User{}}
	svc := NewService(repo)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo := newTestService()
	u, err := svc.Create(context.Background(), admin, CreateUserInput{Username: " Priya ", Password: "s3cret-pass", Role: "Sales"})
	require.NoError(t, err)
	assert.Equal(t, "priya", u.Username)
	assert.Equal(t, shared.RoleSales, u.Role)
	assert.True(t, u.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
	require.Len(t, repo.activities, 1)
	assert.Equal(t, "root created user priya with role sales", repo.activities[0].Message)

	_, err = svc.Create(context.Background(), admin, CreateUserInput{Username: "PRIYA", Password: "another-pass", Role: "sales"})
	require.ErrorIs(t, err, shared.ErrAlreadyExists)

	found, err := svc.FindByUsername(context.Background(), "Priya")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), admin, CreateUserInput{Username: "x1", Password: "long-enough", Role: "owner"})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), admin, CreateUserInput{Username: "x1", Password: "short", Role: "sales"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRouteIsAdminOnly(t *testing.T) {
	svc, _ := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Logger: logger})
	serve := func(actor shared.Actor, body string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
			})
		})
		r.Route("/users", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))
		return rec
	}

	body := `{"username":"dev","password":"password1","role":"inventory"}`
	assert.Equal(t, http.StatusForbidden, serve(shared.Actor{ID: 2, Username: "s", Role: shared.RoleSales}, body).Code)

	rec := serve(admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusBadRequest, serve(admin, `{"username":"dev2","password":"password1","role":"boss"}`).Code)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, repo := newTestService()
	created, err := svc.EnsureAdmin(context.Background(), "Admin", "ops@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, shared.RoleAdmin, repo.users["admin"].Role)
	assert.Equal(t, "system created user admin with role admin", repo.activities[0].Message)

	created, err = svc.EnsureAdmin(context.Background(), "admin", "ops@example.com", "other-pass-123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.users, 1)
}
