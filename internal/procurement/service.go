package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetGRN(ctx context.Context, id int64) (GoodsReceipt, error)
	ListGRNs(ctx context.Context, filter GRNFilter, page shared.PageRequest) ([]GoodsReceipt, int, error)
}

// Service orchestrates the goods receipt workflow.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateGRN opens a draft receipt. A draft with the same supplier, location
// and lines is rejected as a duplicate.
func (s *Service) CreateGRN(ctx context.Context, actor shared.Actor, input CreateGRNInput) (GoodsReceipt, error) {
	if err := validateLines(input.Items); err != nil {
		return GoodsReceipt{}, err
	}
	var out GoodsReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g := GoodsReceipt{
			GRNNumber: shared.GenerateNumber("GRN"),
			Status:    GRNStatusDraft,
			CreatedBy: actor.UserID(),
		}
		if err := s.fill(ctx, tx, &g, input); err != nil {
			return err
		}
		created, err := tx.InsertGRN(ctx, g)
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventGRNCreated, map[string]any{"grn_number": created.GRNNumber})
	})
	return out, err
}

// UpdateGRN replaces the lines of a draft wholesale.
func (s *Service) UpdateGRN(ctx context.Context, actor shared.Actor, id int64, input UpdateGRNInput) (GoodsReceipt, error) {
	if err := validateLines(input.Items); err != nil {
		return GoodsReceipt{}, err
	}
	var out GoodsReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := loadDraft(ctx, tx, id, input.Version)
		if err != nil {
			return err
		}
		if err := s.fill(ctx, tx, &g, input.CreateGRNInput); err != nil {
			return err
		}
		updated, err := tx.UpdateDraft(ctx, g)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventGRNUpdated, map[string]any{"grn_number": updated.GRNNumber})
	})
	return out, err
}

// VerifyGRN posts one STOCK_IN per line and marks the receipt verified.
// Any line failure rolls back every movement.
func (s *Service) VerifyGRN(ctx context.Context, actor shared.Actor, id, version int64) (GoodsReceipt, error) {
	var out GoodsReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := loadDraft(ctx, tx, id, version)
		if err != nil {
			return err
		}
		for _, line := range g.Items {
			if _, err := inventory.ApplyMovement(ctx, tx, actor, inventory.MovementInput{
				ProductID:      line.ProductID,
				LocationID:     g.LocationID,
				QuantityChange: line.Quantity,
				MovementType:   inventory.MovementStockIn,
				ReferenceType:  inventory.ReferenceGRN,
				ReferenceID:    g.ID,
				Note:           g.GRNNumber,
			}); err != nil {
				return fmt.Errorf("procurement: receive product %d: %w", line.ProductID, err)
			}
		}
		now := time.Now().UTC()
		g.Status = GRNStatusVerified
		g.VerifiedBy = actor.UserID()
		g.VerifiedAt = &now
		updated, err := tx.SetStatus(ctx, g, GRNStatusDraft)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventGRNVerified, map[string]any{
			"grn_number": updated.GRNNumber,
			"lines":      len(updated.Items),
		})
	})
	if err == nil {
		s.logger.Info("grn verified", slog.Int64("grn_id", out.ID), slog.Int("lines", len(out.Items)))
	}
	return out, err
}

// CancelGRN closes a draft without touching stock.
func (s *Service) CancelGRN(ctx context.Context, actor shared.Actor, id, version int64) (GoodsReceipt, error) {
	var out GoodsReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := loadDraft(ctx, tx, id, version)
		if err != nil {
			return err
		}
		g.Status = GRNStatusCancelled
		g.CancelledBy = actor.UserID()
		updated, err := tx.SetStatus(ctx, g, GRNStatusDraft)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventGRNCancelled, map[string]any{"grn_number": updated.GRNNumber})
	})
	return out, err
}

// GetGRN loads one receipt with its lines.
func (s *Service) GetGRN(ctx context.Context, id int64) (GoodsReceipt, error) {
	return s.repo.GetGRN(ctx, id)
}

// ListGRNs lists receipt headers.
func (s *Service) ListGRNs(ctx context.Context, filter GRNFilter, page shared.PageRequest) ([]GoodsReceipt, int, error) {
	return s.repo.ListGRNs(ctx, filter, page)
}

func loadDraft(ctx context.Context, tx TxRepository, id, version int64) (GoodsReceipt, error) {
	g, err := tx.GetGRNForUpdate(ctx, id)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if err := versioned.Check(g, version); err != nil {
		return GoodsReceipt{}, err
	}
	if g.Status != GRNStatusDraft {
		return GoodsReceipt{}, shared.InvalidStatef("GRN %s is %s", g.GRNNumber, g.Status)
	}
	return g, nil
}

// fill checks references and copies header and lines from input onto g.
func (s *Service) fill(ctx context.Context, tx TxRepository, g *GoodsReceipt, input CreateGRNInput) error {
	if input.SupplierID != nil {
		ok, err := tx.SupplierActive(ctx, *input.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: supplier %d", shared.ErrNotFound, *input.SupplierID)
		}
	}
	loc, err := tx.GetLocation(ctx, input.LocationID)
	if err != nil {
		return err
	}
	if !loc.IsActive || loc.IsDeleted {
		return shared.Validationf("location %s is inactive", loc.Code)
	}
	lines := make([]GRNLine, 0, len(input.Items))
	for _, in := range input.Items {
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product.IsDeleted {
			return shared.Validationf("product %s is inactive", product.SKU)
		}
		lines = append(lines, GRNLine{ProductID: in.ProductID, Quantity: in.Quantity, UnitCost: shared.RoundMoney(in.UnitCost)})
	}
	signature, err := signLines(input.SupplierID, input.LocationID, lines)
	if err != nil {
		return err
	}
	dup, err := tx.DraftExists(ctx, signature, g.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: identical GRN already in draft", shared.ErrDuplicate)
	}
	g.SupplierID = input.SupplierID
	g.LocationID = input.LocationID
	g.Notes = strings.TrimSpace(input.Notes)
	g.ItemSignature = signature
	g.Items = lines
	return nil
}

func validateLines(items []GRNLineInput) error {
	if len(items) == 0 {
		return shared.Validationf("at least one line is required")
	}
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return shared.Validationf("product is required")
		}
		if it.Quantity <= 0 {
			return shared.Validationf("quantity must be positive")
		}
		if it.UnitCost.IsNegative() {
			return shared.Validationf("unit cost must not be negative")
		}
		if seen[it.ProductID] {
			return shared.Validationf("product %d is listed twice", it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

// signLines hashes the receipt identity independent of line order.
func signLines(supplierID *int64, locationID int64, lines []GRNLine) (string, error) {
	sig := grnSignature{LocationID: locationID, Items: make([]lineSignature, 0, len(lines))}
	if supplierID != nil {
		sig.SupplierID = *supplierID
	}
	for _, l := range lines {
		sig.Items = append(sig.Items, lineSignature{ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: l.UnitCost.StringFixed(2)})
	}
	sort.Slice(sig.Items, func(i, j int) bool { return sig.Items[i].ProductID < sig.Items[j].ProductID })
	return shared.Signature(sig)
}
