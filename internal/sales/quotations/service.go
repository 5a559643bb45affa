package quotations

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/shared"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Service struct {
	repo   Repository
	gst    shared.GST
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewService(repo Repository, gst shared.GST, logger *slog.Logger) *Service {
	return &Service{repo: repo, gst: gst, logger: logger, now: time.Now, loc: time.UTC}
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

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, coreshared.Validationf("invalid date %q", v)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Quotation, int, error) {
	return s.repo.List(ctx, filter, page)
}

// price builds the priced body of a quotation for customerID.
func (s *Service) price(ctx context.Context, tx TxRepository, q *Quotation, inputs []shared.LineInput) error {
	customer, err := tx.Customer(ctx, q.CustomerID)
	if err != nil {
		return err
	}
	lines, subtotal, err := shared.PriceLines(inputs, func(productID int64) (decimal.Decimal, error) {
		return tx.ProductPrice(ctx, productID)
	})
	if err != nil {
		return err
	}
	signature, err := shared.LinesSignature(lines)
	if err != nil {
		return err
	}
	dup, err := tx.DuplicateExists(ctx, q.CustomerID, signature, q.ID)
	if err != nil {
		return err
	}
	if dup {
		return coreshared.ErrDuplicate
	}

	q.IsInterState = s.gst.InterState(customer.State)
	q.TaxRate = s.gst.Rate
	q.Subtotal = subtotal
	q.Breakup = s.gst.Compute(subtotal, q.IsInterState)
	q.TotalAmount = subtotal.Add(q.TaxAmount)
	q.ItemSignature = signature
	q.Items = make([]Item, 0, len(lines))
	for _, l := range lines {
		q.Items = append(q.Items, Item{Line: l})
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor coreshared.Actor, req CreateQuotationRequest) (Quotation, error) {
	validUntil, err := parseDate(req.ValidUntil)
	if err != nil {
		return Quotation{}, err
	}
	if validUntil.Before(s.today()) {
		return Quotation{}, coreshared.Validationf("valid_until must not be in the past")
	}

	var out Quotation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q := Quotation{
			QuotationNumber: coreshared.GenerateNumber("QT"),
			CustomerID:      req.CustomerID,
			Status:          StatusDraft,
			ValidUntil:      validUntil,
			Notes:           req.Notes,
			CreatedBy:       actor.UserID(),
		}
		if err := s.price(ctx, tx, &q, req.Items); err != nil {
			return err
		}
		created, err := tx.Insert(ctx, q)
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventQuotationCreated, map[string]any{
			"quotation_number": created.QuotationNumber,
			"total":            coreshared.FormatAmount(created.TotalAmount),
		})
	})
	return out, err
}

// UpdateDraft replaces the items and terms of a draft quotation.
func (s *Service) UpdateDraft(ctx context.Context, actor coreshared.Actor, id int64, req UpdateQuotationRequest) (Quotation, error) {
	validUntil, err := parseDate(req.ValidUntil)
	if err != nil {
		return Quotation{}, err
	}
	var out Quotation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, req.Version); err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return coreshared.InvalidStatef("quotation %s is %s; only drafts can be edited", current.QuotationNumber, current.Status)
		}
		current.ValidUntil = validUntil
		current.Notes = req.Notes
		if err := s.price(ctx, tx, &current, req.Items); err != nil {
			return err
		}
		updated, err := tx.UpdateDraft(ctx, current)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventQuotationUpdated, map[string]any{"quotation_number": updated.QuotationNumber})
	})
	return out, err
}

func (s *Service) Approve(ctx context.Context, actor coreshared.Actor, id, version int64) (Quotation, error) {
	return s.transition(ctx, actor, id, version, audit.EventQuotationApproved, func(q *Quotation) error {
		if q.Status != StatusDraft {
			return coreshared.InvalidStatef("quotation %s is %s; only drafts can be approved", q.QuotationNumber, q.Status)
		}
		if q.ValidUntil.Before(s.today()) {
			return coreshared.InvalidStatef("quotation %s validity has lapsed", q.QuotationNumber)
		}
		q.Status = StatusApproved
		q.ApprovedBy = actor.UserID()
		return nil
	})
}

func (s *Service) Cancel(ctx context.Context, actor coreshared.Actor, id, version int64) (Quotation, error) {
	return s.transition(ctx, actor, id, version, audit.EventQuotationCancelled, func(q *Quotation) error {
		if q.Status != StatusDraft && q.Status != StatusApproved {
			return coreshared.InvalidStatef("quotation %s is %s and cannot be cancelled", q.QuotationNumber, q.Status)
		}
		q.Status = StatusCancelled
		return nil
	})
}

// Delete soft-deletes a draft quotation.
func (s *Service) Delete(ctx context.Context, actor coreshared.Actor, id, version int64) error {
	_, err := s.transition(ctx, actor, id, version, audit.EventQuotationDeleted, func(q *Quotation) error {
		if q.Status != StatusDraft {
			return coreshared.InvalidStatef("quotation %s is %s; only drafts can be deleted", q.QuotationNumber, q.Status)
		}
		q.IsDeleted = true
		return nil
	})
	return err
}

func (s *Service) transition(ctx context.Context, actor coreshared.Actor, id, version int64, event audit.EventCode, apply func(*Quotation) error) (Quotation, error) {
	var out Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, version); err != nil {
			return err
		}
		from := current.Status
		if err := apply(&current); err != nil {
			return err
		}
		updated, err := tx.SetStatus(ctx, current, from)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, event, map[string]any{"quotation_number": updated.QuotationNumber})
	})
	return out, err
}

// Expire moves one approved, lapsed quotation to expired.
func (s *Service) Expire(ctx context.Context, actor coreshared.Actor, id, version int64) (Quotation, error) {
	today := s.today()
	var out Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, version); err != nil {
			return err
		}
		if current.Status != StatusApproved || !current.ValidUntil.Before(today) {
			return coreshared.InvalidStatef("quotation %s is not an approved quotation past its validity", current.QuotationNumber)
		}
		expired, err := tx.Expire(ctx, id, version, today)
		if err != nil {
			return err
		}
		out = expired
		return audit.Emit(ctx, tx, actor, audit.EventQuotationExpired, expiredData(expired))
	})
	return out, err
}

// ExpireDue expires every approved quotation whose validity ended before
// today and records one system activity per quotation. It is safe to re-run.
func (s *Service) ExpireDue(ctx context.Context, today time.Time) (int, error) {
	today = dateOnly(today)
	var count int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		expired, err := tx.ExpireDue(ctx, today)
		if err != nil {
			return err
		}
		count = len(expired)
		for _, q := range expired {
			if err := audit.Emit(ctx, tx, coreshared.SystemActor, audit.EventQuotationExpired, expiredData(q)); err != nil {
				s.logger.Warn("quotation expiry activity skipped",
					slog.String("quotation_number", q.QuotationNumber),
					slog.Any("error", err))
			}
		}
		return nil
	})
	return count, err
}

func expiredData(q Quotation) map[string]any {
	return map[string]any{
		"quotation_number": q.QuotationNumber,
		"valid_until":      q.ValidUntil.Format(time.DateOnly),
	}
}
