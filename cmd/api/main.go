package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/app"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/auth"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/discounts"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/masterdata/products"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/masterdata/suppliers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/observability"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/cache"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/procurement"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/customers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/invoices"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/quotations"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/users"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.Pool("api"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Logger: logger}
	gst := cfg.GST()

	userService := users.NewService(users.NewRepository(dbpool))
	if cfg.BootstrapAdminUsername != "" {
		created, err := userService.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			logger.Error("bootstrap admin", slog.Any("error", err))
			os.Exit(1)
		}
		if created {
			logger.Info("bootstrap admin created", slog.String("username", cfg.BootstrapAdminUsername))
		}
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(userService, tokens, auth.NewRevocationStore(redisClient, ""),
		audit.TxWriter{Q: dbpool}, logger)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool))
	procurementService := procurement.NewService(procurement.NewRepository(dbpool), logger)
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("business time zone", slog.Any("error", err))
		os.Exit(1)
	}
	quotationService := quotations.NewService(quotations.NewRepository(dbpool), gst, logger).WithLocation(loc)
	invoiceService := invoices.NewService(invoices.NewRepository(dbpool), gst, logger).WithLocation(loc)
	discountService := discounts.NewService(discounts.NewRepository(dbpool), logger).WithLocation(loc)

	redisOpts := cfg.Redis().AsynqOpts()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		Pool:               dbpool,
		Redis:              redisClient,
		Authenticator:      auth.Middleware(authService),
		RBAC:               rbacMiddleware,
		AuthHandler:        auth.NewHandler(logger, authService),
		UsersHandler:       users.NewHandler(logger, userService, rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, products.NewService(products.NewRepository(dbpool)), rbacMiddleware),
		SuppliersHandler:   suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(dbpool)), rbacMiddleware),
		CustomersHandler:   customers.NewHandler(customers.NewService(customers.NewRepository(dbpool)), rbacMiddleware, logger),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(logger, procurementService, rbacMiddleware),
		QuotationsHandler:  quotations.NewHandler(quotationService, rbacMiddleware, logger),
		InvoicesHandler:    invoices.NewHandler(invoiceService, rbacMiddleware, logger),
		DiscountsHandler:   discounts.NewHandler(logger, discountService, rbacMiddleware),
		AuditHandler:       audit.NewHandler(audit.NewService(audit.NewStore(dbpool)), logger),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
