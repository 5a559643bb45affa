package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/jobs"
)

// QuotationExpirer is the batch expiry operation of the quotation service.
type QuotationExpirer interface {
	ExpireDue(ctx context.Context, today time.Time) (int, error)
}

// DiscountScheduler is the batch lifecycle of the discount service.
type DiscountScheduler interface {
	ExpireDue(ctx context.Context, today time.Time) (int, error)
	ActivateDue(ctx context.Context, today time.Time) (int, error)
}

// QuotationExpiryJob marks approved quotations past their validity as
// expired. Drafts are left alone. Reruns for the same date change nothing.
type QuotationExpiryJob struct {
	Quotations QuotationExpirer
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Location   *time.Location
	clock      func() time.Time
}

// NewQuotationExpiryJob initialises the expiry handler.
func NewQuotationExpiryJob(quotations QuotationExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics, loc *time.Location) *QuotationExpiryJob {
	return &QuotationExpiryJob{
		Quotations: quotations,
		Logger:     logger,
		Metrics:    metrics,
		Location:   locationOrUTC(loc),
		clock:      time.Now,
	}
}

// Handle executes one expiry run.
func (j *QuotationExpiryJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Quotations == nil {
		return errors.New("quotation expiry: handler not configured")
	}
	today, err := businessDate(t.Payload(), j.Location, j.clock())
	if err != nil {
		return fmt.Errorf("quotation expiry: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskQuotationExpiry)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.String("date", today.Format(time.DateOnly)))
	expired, err := j.Quotations.ExpireDue(ctx, today)
	if err != nil {
		logger.Error("quotation expiry failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskQuotationExpiry, "expired", expired)
	logger.Info("quotation expiry completed", slog.Int("expired", expired))
	return nil
}

// DiscountLifecycleJob deactivates discounts past their end date, then
// activates those whose window has opened.
type DiscountLifecycleJob struct {
	Discounts DiscountScheduler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Location  *time.Location
	clock     func() time.Time
}

// NewDiscountLifecycleJob initialises the discount handler.
func NewDiscountLifecycleJob(discounts DiscountScheduler, logger *slog.Logger, metrics *jobmetrics.Metrics, loc *time.Location) *DiscountLifecycleJob {
	return &DiscountLifecycleJob{
		Discounts: discounts,
		Logger:    logger,
		Metrics:   metrics,
		Location:  locationOrUTC(loc),
		clock:     time.Now,
	}
}

// Handle executes one lifecycle run.
func (j *DiscountLifecycleJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Discounts == nil {
		return errors.New("discount lifecycle: handler not configured")
	}
	today, err := businessDate(t.Payload(), j.Location, j.clock())
	if err != nil {
		return fmt.Errorf("discount lifecycle: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskDiscountLifecycle)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.String("date", today.Format(time.DateOnly)))
	expired, err := j.Discounts.ExpireDue(ctx, today)
	if err != nil {
		logger.Error("discount expiry failed", slog.Any("error", err))
		return err
	}
	activated, err := j.Discounts.ActivateDue(ctx, today)
	if err != nil {
		logger.Error("discount activation failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskDiscountLifecycle, "expired", expired)
	j.Metrics.AddAffected(TaskDiscountLifecycle, "activated", activated)
	logger.Info("discount lifecycle completed", slog.Int("expired", expired), slog.Int("activated", activated))
	return nil
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
