package inventory

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTransfer(ctx context.Context, id int64) (StockTransfer, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]StockTransfer, error)
	ListLocations(ctx context.Context) ([]Location, error)
	ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, error)
	ListMovements(ctx context.Context, productID, locationID int64, limit int) ([]Movement, error)
	StockSummary(ctx context.Context) ([]SummaryRow, error)
}

// Service coordinates inventory operations.
type Service struct {
	repo    RepositoryPort
	summary singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Adjust posts a manual ADJUSTMENT movement.
func (s *Service) Adjust(ctx context.Context, actor shared.Actor, input AdjustmentInput) (Movement, error) {
	if strings.TrimSpace(input.Note) == "" {
		return Movement{}, shared.Validationf("adjustment note is required")
	}
	var out Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := requireActiveLocation(ctx, tx, input.LocationID); err != nil {
			return err
		}
		mv, err := ApplyMovement(ctx, tx, actor, MovementInput{
			ProductID:      input.ProductID,
			LocationID:     input.LocationID,
			QuantityChange: input.QuantityChange,
			MovementType:   MovementAdjustment,
			ReferenceType:  ReferenceAdjustment,
			Note:           input.Note,
		})
		if err != nil {
			return err
		}
		out = mv
		return nil
	})
	return out, err
}

// CreateLocation registers a stock point. Codes are stored lower-cased.
func (s *Service) CreateLocation(ctx context.Context, actor shared.Actor, input LocationInput) (Location, error) {
	code, name, err := normalizeLocation(input)
	if err != nil {
		return Location{}, err
	}
	var out Location
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.InsertLocation(ctx, Location{Code: code, Name: name, IsActive: true})
		if err != nil {
			return fmt.Errorf("location %q: %w", code, err)
		}
		out = loc
		return audit.Emit(ctx, tx, actor, audit.EventLocationCreated, map[string]any{"code": loc.Code})
	})
	return out, err
}

// UpdateLocation renames a location at the expected version.
func (s *Service) UpdateLocation(ctx context.Context, actor shared.Actor, id, version int64, input LocationInput) (Location, error) {
	code, name, err := normalizeLocation(input)
	if err != nil {
		return Location{}, err
	}
	var out Location
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(loc, version); err != nil {
			return err
		}
		loc.Code, loc.Name = code, name
		updated, err := tx.UpdateLocation(ctx, loc)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventLocationUpdated, map[string]any{"code": updated.Code})
	})
	return out, err
}

// DeactivateLocation marks a location inactive at the expected version.
func (s *Service) DeactivateLocation(ctx context.Context, actor shared.Actor, id, version int64) (Location, error) {
	var out Location
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(loc, version); err != nil {
			return err
		}
		if !loc.IsActive {
			return shared.InvalidStatef("location %s is already inactive", loc.Code)
		}
		loc.IsActive = false
		updated, err := tx.UpdateLocation(ctx, loc)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventLocationDeactivated, map[string]any{"code": updated.Code})
	})
	return out, err
}

// ListLocations returns live locations.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	return s.repo.ListLocations(ctx)
}

// ListBalances returns current balances.
func (s *Service) ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	return s.repo.ListBalances(ctx, filter)
}

// ListMovements returns the ledger for a pair.
func (s *Service) ListMovements(ctx context.Context, productID, locationID int64, limit int) ([]Movement, error) {
	if productID <= 0 || locationID <= 0 {
		return nil, shared.Validationf("product_id and location_id are required")
	}
	return s.repo.ListMovements(ctx, productID, locationID, limit)
}

// StockSummary projects balances onto the godown/showroom pair. Concurrent
// callers share one query.
func (s *Service) StockSummary(ctx context.Context) ([]SummaryRow, error) {
	v, err, _ := s.summary.Do("summary", func() (any, error) {
		return s.repo.StockSummary(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]SummaryRow), nil
}

func normalizeLocation(input LocationInput) (string, string, error) {
	code := strings.ToLower(strings.TrimSpace(input.Code))
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return "", "", shared.Validationf("location code and name are required")
	}
	return code, name, nil
}

func requireActiveLocation(ctx context.Context, tx TxRepository, id int64) (Location, error) {
	loc, err := tx.GetLocation(ctx, id)
	if err != nil {
		return Location{}, err
	}
	if loc.IsDeleted {
		return Location{}, fmt.Errorf("%w: location %d", shared.ErrNotFound, id)
	}
	if !loc.IsActive {
		return Location{}, shared.Validationf("location %s is inactive", loc.Code)
	}
	return loc, nil
}
