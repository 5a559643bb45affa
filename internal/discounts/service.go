package discounts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now, loc: time.UTC}
}

// WithLocation sets the zone that decides the business date. Nil means UTC.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s.loc = loc
	return s
}

func (s *Service) today() time.Time {
	return dateOnly(s.now().In(s.loc))
}

type normalized struct {
	code       string
	start, end time.Time
}

func normalize(form DiscountForm) (normalized, error) {
	var n normalized
	n.code = strings.ToUpper(strings.TrimSpace(form.Code))
	if n.code == "" {
		return n, shared.Validationf("discount code is required")
	}
	if form.DiscountType != TypePercentage && form.DiscountType != TypeFlat {
		return n, shared.Validationf("discount type must be percentage or flat")
	}
	if !form.Value.IsPositive() {
		return n, shared.Validationf("discount value must be positive")
	}
	if form.DiscountType == TypePercentage && form.Value.GreaterThan(decimal.NewFromInt(100)) {
		return n, shared.Validationf("percentage discount cannot exceed 100")
	}
	var err error
	if n.start, err = time.Parse(time.DateOnly, form.StartDate); err != nil {
		return n, shared.Validationf("invalid start_date")
	}
	if n.end, err = time.Parse(time.DateOnly, form.EndDate); err != nil {
		return n, shared.Validationf("invalid end_date")
	}
	if n.end.Before(n.start) {
		return n, shared.Validationf("end_date must not be before start_date")
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Discount, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool, page shared.PageRequest) ([]Discount, int, error) {
	return s.repo.List(ctx, activeOnly, page)
}

func (s *Service) Create(ctx context.Context, actor shared.Actor, form DiscountForm) (Discount, error) {
	n, err := normalize(form)
	if err != nil {
		return Discount{}, err
	}
	d := Discount{
		Code:         n.code,
		Description:  strings.TrimSpace(form.Description),
		DiscountType: form.DiscountType,
		Value:        form.Value,
		StartDate:    n.start,
		EndDate:      n.end,
		UsageLimit:   form.UsageLimit,
	}
	d.IsActive = d.InWindow(s.today())

	var out Discount
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Insert(ctx, d)
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventDiscountCreated, map[string]any{"code": created.Code})
	})
	return out, err
}

func (s *Service) Update(ctx context.Context, actor shared.Actor, id, version int64, form DiscountForm) (Discount, error) {
	n, err := normalize(form)
	if err != nil {
		return Discount{}, err
	}
	return s.mutate(ctx, actor, id, version, audit.EventDiscountUpdated, func(d *Discount) error {
		if form.UsageLimit != nil && *form.UsageLimit < d.UsedCount {
			return shared.Validationf("usage limit %d is below the %d uses already made", *form.UsageLimit, d.UsedCount)
		}
		d.Code = n.code
		d.Description = strings.TrimSpace(form.Description)
		d.DiscountType = form.DiscountType
		d.Value = form.Value
		d.StartDate = n.start
		d.EndDate = n.end
		d.UsageLimit = form.UsageLimit
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, actor shared.Actor, id, version int64) error {
	_, err := s.mutate(ctx, actor, id, version, audit.EventDiscountDeleted, func(d *Discount) error {
		d.IsDeleted = true
		d.IsActive = false
		return nil
	})
	return err
}

// SetActive switches a discount on or off by hand. An expired discount
// cannot be switched on.
func (s *Service) SetActive(ctx context.Context, actor shared.Actor, id, version int64, active bool) (Discount, error) {
	event := audit.EventDiscountDeactivated
	if active {
		event = audit.EventDiscountActivated
	}
	today := s.today()
	return s.mutate(ctx, actor, id, version, event, func(d *Discount) error {
		if active && d.EndDate.Before(today) {
			return shared.InvalidStatef("discount %s ended on %s", d.Code, d.EndDate.Format(time.DateOnly))
		}
		d.IsActive = active
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, actor shared.Actor, id, version int64, event audit.EventCode, apply func(*Discount) error) (Discount, error) {
	var out Discount
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, version); err != nil {
			return err
		}
		if err := apply(&current); err != nil {
			return err
		}
		updated, err := tx.Update(ctx, current)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, event, map[string]any{"code": updated.Code})
	})
	return out, err
}

// ExpireDue switches off every active discount whose end date has passed.
func (s *Service) ExpireDue(ctx context.Context, today time.Time) (int, error) {
	return s.runBatch(ctx, "expire", func(ctx context.Context, tx TxRepository) ([]Discount, error) {
		return tx.ExpireDue(ctx, dateOnly(today))
	}, audit.EventDiscountExpired, func(d Discount) map[string]any {
		return map[string]any{"code": d.Code, "end_date": d.EndDate.Format(time.DateOnly)}
	})
}

// ActivateDue switches on every inactive discount whose window contains today.
func (s *Service) ActivateDue(ctx context.Context, today time.Time) (int, error) {
	return s.runBatch(ctx, "activate", func(ctx context.Context, tx TxRepository) ([]Discount, error) {
		return tx.ActivateDue(ctx, dateOnly(today))
	}, audit.EventDiscountAutoStarted, func(d Discount) map[string]any {
		return map[string]any{"code": d.Code, "start_date": d.StartDate.Format(time.DateOnly)}
	})
}

func (s *Service) runBatch(ctx context.Context, name string, run func(context.Context, TxRepository) ([]Discount, error),
	event audit.EventCode, data func(Discount) map[string]any) (int, error) {
	var count int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := run(ctx, tx)
		if err != nil {
			return err
		}
		count = len(rows)
		for _, d := range rows {
			if err := audit.Emit(ctx, tx, shared.SystemActor, event, data(d)); err != nil {
				s.logger.Warn("discount lifecycle activity skipped",
					slog.String("batch", name),
					slog.String("code", d.Code),
					slog.Any("error", err))
			}
		}
		return nil
	})
	return count, err
}
