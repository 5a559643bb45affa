package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/app"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/discounts"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/observability"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/quotations"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("scheduler tz", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.Pool("worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	quotationService := quotations.NewService(quotations.NewRepository(pool), cfg.GST(), logger).WithLocation(loc)
	discountService := discounts.NewService(discounts.NewRepository(pool), logger).WithLocation(loc)

	expiryJob := jobs.NewQuotationExpiryJob(quotationService, logger, metrics.Jobs(), loc)
	lifecycleJob := jobs.NewDiscountLifecycleJob(discountService, logger, metrics.Jobs(), loc)

	expiryTask, err := jobs.NewQuotationExpiryTask("")
	if err != nil {
		logger.Error("build expiry task", slog.Any("error", err))
		os.Exit(1)
	}
	lifecycleTask, err := jobs.NewDiscountLifecycleTask("")
	if err != nil {
		logger.Error("build lifecycle task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().AsynqOpts(),
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuotationExpiry, Handler: expiryJob.Handle},
			{Type: jobs.TaskDiscountLifecycle, Handler: lifecycleJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SchedulerCron, Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.SchedulerCron, Task: lifecycleTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Job metrics are scraped from the worker's own listener.
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started", slog.String("cron", cfg.SchedulerCron), slog.String("tz", loc.String()))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
