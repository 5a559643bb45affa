package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/auth"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/discounts"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/masterdata/products"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/masterdata/suppliers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/observability"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/httpx"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/procurement"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/customers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/invoices"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/quotations"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/users"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	// Pool and Redis back the readiness probe; either may be nil in tests.
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Authenticator func(http.Handler) http.Handler
	RBAC          rbac.Middleware

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	ProductsHandler    *products.Handler
	SuppliersHandler   *suppliers.Handler
	CustomersHandler   *customers.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	QuotationsHandler  *quotations.Handler
	InvoicesHandler    *invoices.Handler
	DiscountsHandler   *discounts.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(requestLogger(params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Pool, params.Redis, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		if params.Authenticator != nil {
			r.Use(params.Authenticator)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.ProcurementHandler != nil {
			r.Route("/grns", params.ProcurementHandler.MountRoutes)
		}
		if params.QuotationsHandler != nil {
			r.Route("/quotations", params.QuotationsHandler.MountRoutes)
		}
		if params.InvoicesHandler != nil {
			r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		}
		if params.DiscountsHandler != nil {
			r.Route("/discounts", params.DiscountsHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(shared.RoleAdmin))
			if params.AuditHandler != nil {
				r.Route("/activities", params.AuditHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}

func readiness(pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := map[string]string{}
		healthy := true
		if pool != nil {
			checks["postgres"] = "ok"
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness postgres", slog.Any("error", err))
				checks["postgres"] = "down"
				healthy = false
			}
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("readiness redis", slog.Any("error", err))
				checks["redis"] = "down"
				healthy = false
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, checks)
	}
}
