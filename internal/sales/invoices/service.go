package invoices

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/quotations"
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
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, filter, page)
}

func (s *Service) priceItems(ctx context.Context, tx TxRepository, inv *Invoice, inputs []shared.LineInput) error {
	lines, gross, err := shared.PriceLines(inputs, func(productID int64) (decimal.Decimal, error) {
		return tx.ProductPrice(ctx, productID)
	})
	if err != nil {
		return err
	}
	return s.setLines(ctx, tx, inv, lines, gross)
}

func (s *Service) setLines(ctx context.Context, tx TxRepository, inv *Invoice, lines []shared.Line, gross decimal.Decimal) error {
	signature, err := shared.LinesSignature(lines)
	if err != nil {
		return err
	}
	dup, err := tx.DuplicateDraftExists(ctx, inv.CustomerID, signature, inv.ID)
	if err != nil {
		return err
	}
	if dup {
		return coreshared.ErrDuplicate
	}
	inv.ItemSignature = signature
	inv.GrossAmount = gross
	inv.Items = make([]Item, 0, len(lines))
	for _, l := range lines {
		inv.Items = append(inv.Items, Item{Line: l})
	}
	return inv.recalc()
}

func (s *Service) Create(ctx context.Context, actor coreshared.Actor, req CreateInvoiceRequest) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		customer, err := tx.Customer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		inv := Invoice{
			InvoiceNumber:    coreshared.GenerateNumber("INV"),
			CustomerID:       customer.ID,
			Status:           StatusDraft,
			IsInterState:     s.gst.InterState(customer.State),
			TaxRate:          s.gst.Rate,
			DiscountAmount:   decimal.Zero,
			TotalPaid:        decimal.Zero,
			CustomerSnapshot: customer.Snapshot(),
			CreatedBy:        actor.UserID(),
		}
		if err := s.priceItems(ctx, tx, &inv, req.Items); err != nil {
			return err
		}
		created, err := tx.Insert(ctx, inv)
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventInvoiceCreated, map[string]any{
			"invoice_number": created.InvoiceNumber,
			"net":            coreshared.FormatAmount(created.NetAmount),
		})
	})
	return out, err
}

// CreateFromQuotation turns an approved quotation into a draft invoice at
// the quoted prices and tax split, and marks the quotation converted.
func (s *Service) CreateFromQuotation(ctx context.Context, actor coreshared.Actor, req FromQuotationRequest) (Invoice, error) {
	today := s.today()
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Quotation(ctx, req.QuotationID)
		if err != nil {
			return err
		}
		if err := versioned.Check(q, req.Version); err != nil {
			return err
		}
		if q.Status != quotations.StatusApproved {
			return coreshared.InvalidStatef("quotation %s is %s; only approved quotations can be invoiced", q.QuotationNumber, q.Status)
		}
		if q.ValidUntil.Before(today) {
			return coreshared.InvalidStatef("quotation %s expired on %s", q.QuotationNumber, q.ValidUntil.Format(time.DateOnly))
		}
		customer, err := tx.Customer(ctx, q.CustomerID)
		if err != nil {
			return err
		}
		quotationID := q.ID
		inv := Invoice{
			InvoiceNumber:    coreshared.GenerateNumber("INV"),
			CustomerID:       customer.ID,
			QuotationID:      &quotationID,
			Status:           StatusDraft,
			IsInterState:     q.IsInterState,
			TaxRate:          q.TaxRate,
			DiscountAmount:   decimal.Zero,
			TotalPaid:        decimal.Zero,
			CustomerSnapshot: customer.Snapshot(),
			CreatedBy:        actor.UserID(),
		}
		if err := s.setLines(ctx, tx, &inv, q.Lines(), q.Subtotal); err != nil {
			return err
		}
		if err := tx.MarkQuotation(ctx, q.ID, quotations.StatusApproved, quotations.StatusConverted); err != nil {
			return err
		}
		created, err := tx.Insert(ctx, inv)
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventInvoiceConverted, map[string]any{
			"invoice_number":   created.InvoiceNumber,
			"quotation_number": q.QuotationNumber,
		})
	})
	return out, err
}

// UpdateDraft replaces the items of a draft invoice.
func (s *Service) UpdateDraft(ctx context.Context, actor coreshared.Actor, id int64, req UpdateInvoiceRequest) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.load(ctx, tx, id, req.Version, StatusDraft)
		if err != nil {
			return err
		}
		if err := s.priceItems(ctx, tx, &inv, req.Items); err != nil {
			return err
		}
		updated, err := tx.UpdateDraft(ctx, inv)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventInvoiceUpdated, map[string]any{"invoice_number": updated.InvoiceNumber})
	})
	return out, err
}

// load locks the invoice and checks version and allowed states.
func (s *Service) load(ctx context.Context, tx TxRepository, id, version int64, allowed ...Status) (Invoice, error) {
	inv, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if err := versioned.Check(inv, version); err != nil {
		return Invoice{}, err
	}
	for _, st := range allowed {
		if inv.Status == st {
			return inv, nil
		}
	}
	return Invoice{}, coreshared.InvalidStatef("invoice %s is %s", inv.InvoiceNumber, inv.Status)
}

func (s *Service) Verify(ctx context.Context, actor coreshared.Actor, id, version int64) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.load(ctx, tx, id, version, StatusDraft)
		if err != nil {
			return err
		}
		inv.Status = StatusVerified
		inv.VerifiedBy = actor.UserID()
		inv.settle()
		updated, err := tx.Save(ctx, inv, StatusDraft)
		if err != nil {
			return err
		}
		if inv.QuotationID != nil {
			if err := tx.MarkQuotation(ctx, *inv.QuotationID, quotations.StatusConverted, quotations.StatusInvoiced); err != nil {
				return err
			}
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventInvoiceVerified, map[string]any{"invoice_number": updated.InvoiceNumber})
	})
	return out, err
}

// ApplyDiscount redeems a discount code against the invoice. The discount
// row stays locked until commit so its usage limit cannot be overrun.
func (s *Service) ApplyDiscount(ctx context.Context, actor coreshared.Actor, id int64, req ApplyDiscountRequest) (Invoice, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	today := s.today()
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.load(ctx, tx, id, req.Version, StatusDraft, StatusVerified)
		if err != nil {
			return err
		}
		if inv.DiscountID != nil {
			return coreshared.InvalidStatef("invoice %s already carries a discount", inv.InvoiceNumber)
		}
		discount, err := tx.LockDiscount(ctx, code)
		if err != nil {
			return err
		}
		if err := discount.Usable(today); err != nil {
			return err
		}
		from := inv.Status
		discountID := discount.ID
		inv.DiscountID = &discountID
		inv.DiscountAmount = discount.Amount(inv.GrossAmount)
		if err := inv.recalc(); err != nil {
			return err
		}
		inv.settle()
		if _, err := tx.RedeemDiscount(ctx, discount.ID); err != nil {
			return err
		}
		updated, err := tx.Save(ctx, inv, from)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventInvoiceDiscountApplied, map[string]any{
			"invoice_number": updated.InvoiceNumber,
			"code":           discount.Code,
			"discount":       coreshared.FormatAmount(updated.DiscountAmount),
		})
	})
	return out, err
}

// OverrideDiscount sets the discount amount directly.
func (s *Service) OverrideDiscount(ctx context.Context, actor coreshared.Actor, id int64, req OverrideDiscountRequest) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.load(ctx, tx, id, req.Version, StatusDraft, StatusVerified)
		if err != nil {
			return err
		}
		from := inv.Status
		inv.DiscountAmount = coreshared.RoundMoney(req.Amount)
		if err := inv.recalc(); err != nil {
			return err
		}
		inv.settle()
		updated, err := tx.Save(ctx, inv, from)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventInvoiceDiscountOverridden, map[string]any{
			"invoice_number": updated.InvoiceNumber,
			"discount":       coreshared.FormatAmount(updated.DiscountAmount),
		})
	})
	return out, err
}

// AddPayment records a payment against a verified or partially paid invoice.
// Overpayment is rejected.
func (s *Service) AddPayment(ctx context.Context, actor coreshared.Actor, id int64, req PaymentRequest) (Invoice, error) {
	amount := coreshared.RoundMoney(req.Amount)
	if !amount.IsPositive() {
		return Invoice{}, coreshared.Validationf("payment amount must be positive")
	}
	switch req.Method {
	case MethodCash, MethodCard, MethodUPI, MethodBankTransfer, MethodCheque:
	default:
		return Invoice{}, coreshared.Validationf("unknown payment method %q", req.Method)
	}

	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsDeleted {
			return coreshared.ErrNotFound
		}
		if inv.Status != StatusVerified && inv.Status != StatusPartiallyPaid {
			return coreshared.InvalidStatef("invoice %s is %s and cannot take payments", inv.InvoiceNumber, inv.Status)
		}
		if amount.GreaterThan(inv.BalanceDue) {
			return coreshared.Validationf("payment of %s exceeds balance due %s",
				coreshared.FormatAmount(amount), coreshared.FormatAmount(inv.BalanceDue))
		}
		payment, err := tx.InsertPayment(ctx, Payment{
			InvoiceID:  inv.ID,
			Amount:     amount,
			Method:     req.Method,
			Reference:  strings.TrimSpace(req.Reference),
			ReceivedBy: actor.UserID(),
		})
		if err != nil {
			return err
		}
		from := inv.Status
		inv.TotalPaid = inv.TotalPaid.Add(amount)
		inv.BalanceDue = inv.NetAmount.Sub(inv.TotalPaid)
		if inv.BalanceDue.IsZero() {
			inv.Status = StatusPaid
		} else {
			inv.Status = StatusPartiallyPaid
		}
		inv.Payments = append(inv.Payments, payment)
		updated, err := tx.Save(ctx, inv, from)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventInvoicePaymentAdded, map[string]any{
			"invoice_number": updated.InvoiceNumber,
			"method":         string(payment.Method),
			"amount":         coreshared.FormatAmount(payment.Amount),
		})
	})
	return out, err
}

func (s *Service) Fulfill(ctx context.Context, actor coreshared.Actor, id, version int64) (Invoice, error) {
	return s.move(ctx, actor, id, version, StatusFulfilled, audit.EventInvoiceFulfilled, StatusPaid)
}

// Cancel is allowed before any payment. Stock and discount usage are left
// untouched.
func (s *Service) Cancel(ctx context.Context, actor coreshared.Actor, id, version int64) (Invoice, error) {
	return s.move(ctx, actor, id, version, StatusCancelled, audit.EventInvoiceCancelled, StatusDraft, StatusVerified)
}

func (s *Service) move(ctx context.Context, actor coreshared.Actor, id, version int64, to Status, event audit.EventCode, allowed ...Status) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := s.load(ctx, tx, id, version, allowed...)
		if err != nil {
			return err
		}
		from := inv.Status
		inv.Status = to
		updated, err := tx.Save(ctx, inv, from)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, event, map[string]any{"invoice_number": updated.InvoiceNumber})
	})
	return out, err
}
