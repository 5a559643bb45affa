package suppliers

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func normalize(form SupplierForm) (SupplierForm, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.GSTIN = strings.ToUpper(strings.TrimSpace(form.GSTIN))
	if form.Name == "" {
		return form, coreshared.Validationf("supplier name is required")
	}
	return form, nil
}

func (s *Service) Create(ctx context.Context, actor coreshared.Actor, form SupplierForm) (Supplier, error) {
	form, err := normalize(form)
	if err != nil {
		return Supplier{}, err
	}
	var out Supplier
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Create(ctx, Supplier{
			Name: form.Name, Email: form.Email, Phone: form.Phone, GSTIN: form.GSTIN, Address: form.Address,
		})
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventSupplierCreated, map[string]any{"name": created.Name})
	})
	return out, err
}

func (s *Service) Update(ctx context.Context, actor coreshared.Actor, id, version int64, form SupplierForm) (Supplier, error) {
	form, err := normalize(form)
	if err != nil {
		return Supplier{}, err
	}
	return s.mutate(ctx, actor, id, version, audit.EventSupplierUpdated, func(sup *Supplier) {
		sup.Name = form.Name
		sup.Email = form.Email
		sup.Phone = form.Phone
		sup.GSTIN = form.GSTIN
		sup.Address = form.Address
	})
}

// Delete soft-deletes the supplier. GRNs keep their supplier reference.
func (s *Service) Delete(ctx context.Context, actor coreshared.Actor, id, version int64) (Supplier, error) {
	return s.mutate(ctx, actor, id, version, audit.EventSupplierDeleted, func(sup *Supplier) {
		sup.IsDeleted = true
	})
}

func (s *Service) mutate(ctx context.Context, actor coreshared.Actor, id, version int64, event audit.EventCode, apply func(*Supplier)) (Supplier, error) {
	var out Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := versioned.Check(current, version); err != nil {
			return err
		}
		apply(&current)
		updated, err := tx.Update(ctx, current)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, event, map[string]any{"name": updated.Name})
	})
	return out, err
}
