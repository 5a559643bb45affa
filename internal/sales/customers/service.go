package customers

import (
	"context"
	"strings"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/masterdata/shared"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, actor coreshared.Actor, req CreateCustomerRequest) (Customer, error) {
	customer := Customer{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		GSTIN:   upper(req.GSTIN),
		State:   strings.TrimSpace(req.State),
		Address: req.Address,
	}
	if customer.Name == "" || customer.State == "" {
		return Customer{}, coreshared.Validationf("customer name and state are required")
	}

	var out Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Create(ctx, customer)
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventCustomerCreated, map[string]any{"name": created.Name})
	})
	return out, err
}

// Update applies the non-nil fields of req. Invoices already issued keep
// their own snapshot of the customer.
func (s *Service) Update(ctx context.Context, actor coreshared.Actor, id int64, req UpdateCustomerRequest) (Customer, error) {
	var out Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, req.Version); err != nil {
			return err
		}
		if req.Name != nil {
			current.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			current.Email = req.Email
		}
		if req.Phone != nil {
			current.Phone = req.Phone
		}
		if req.GSTIN != nil {
			current.GSTIN = upper(req.GSTIN)
		}
		if req.State != nil {
			current.State = strings.TrimSpace(*req.State)
		}
		if req.Address != nil {
			current.Address = req.Address
		}
		if current.Name == "" || current.State == "" {
			return coreshared.Validationf("customer name and state are required")
		}
		updated, err := tx.Update(ctx, current)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventCustomerUpdated, map[string]any{"name": updated.Name})
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, actor coreshared.Actor, id, version int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, version); err != nil {
			return err
		}
		current.IsDeleted = true
		if _, err := tx.Update(ctx, current); err != nil {
			return err
		}
		return audit.Emit(ctx, tx, actor, audit.EventCustomerDeleted, map[string]any{"name": current.Name})
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	return &v
}
