package products

import (
	"context"

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, coreshared.Validationf("invalid product id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) LowStock(ctx context.Context) ([]LowStockRow, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) Create(ctx context.Context, actor coreshared.Actor, form ProductForm) (Product, error) {
	form, err := s.validate(form)
	if err != nil {
		return Product{}, err
	}
	var out Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Create(ctx, Product{
			SKU:               form.SKU,
			Name:              form.Name,
			Description:       form.Description,
			Price:             form.Price,
			MinStockThreshold: form.MinStockThreshold,
			SupplierID:        form.SupplierID,
		})
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventProductCreated, map[string]any{"sku": created.SKU})
	})
	return out, err
}

func (s *Service) Update(ctx context.Context, actor coreshared.Actor, id, version int64, form ProductForm) (Product, error) {
	form, err := s.validate(form)
	if err != nil {
		return Product{}, err
	}
	return s.mutate(ctx, actor, id, version, audit.EventProductUpdated, func(p *Product) error {
		p.SKU = form.SKU
		p.Name = form.Name
		p.Description = form.Description
		p.Price = form.Price
		p.MinStockThreshold = form.MinStockThreshold
		p.SupplierID = form.SupplierID
		return nil
	})
}

// Deactivate soft-deletes the product; its ledger history stays intact.
func (s *Service) Deactivate(ctx context.Context, actor coreshared.Actor, id, version int64) (Product, error) {
	return s.mutate(ctx, actor, id, version, audit.EventProductDeactivated, func(p *Product) error {
		p.IsDeleted = true
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, actor coreshared.Actor, id, version int64, event audit.EventCode, apply func(*Product) error) (Product, error) {
	var out Product
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
		return audit.Emit(ctx, tx, actor, event, map[string]any{"sku": updated.SKU})
	})
	return out, err
}
