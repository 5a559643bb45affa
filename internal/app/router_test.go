package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/observability"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type activityStub struct{}

func (activityStub) ListActivities(context.Context, *int64, int, int) ([]audit.Activity, error) {
	return []audit.Activity{{ID: 1, Username: "root", EventCode: audit.EventUserLogin, Message: "root logged in"}}, nil
}

// headerAuth stands in for the bearer middleware: X-Role becomes the actor.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role")
		if role == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		ctx := shared.ContextWithActor(r.Context(), shared.Actor{ID: 1, Username: "tester", Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterParams{
		Logger:        logger,
		Config:        &Config{AppEnv: "test"},
		Metrics:       observability.NewMetrics(),
		Authenticator: headerAuth,
		RBAC:          rbac.Middleware{Logger: logger},
		AuditHandler:  audit.NewHandler(audit.NewService(activityStub{}), logger),
	})
}

func TestPublicProbes(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `billing_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestActivitiesRequireAdmin(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/activities", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set("X-Role", shared.RoleSales)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set("X-Role", shared.RoleAdmin)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "root logged in")
}

func TestConfigValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("SCHEDULER_TZ", "Mars/Olympus")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("SCHEDULER_TZ", "Asia/Kolkata")
	t.Setenv("GST_RATE", "12.5")
	t.Setenv("HOME_STATE", "Karnataka")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "12.5", cfg.GST().Rate.String())
	require.Equal(t, "Karnataka", cfg.GST().HomeState)
	require.Equal(t, "5 0 * * *", cfg.SchedulerCron)
	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", loc.String())
}
