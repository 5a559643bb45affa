package products

import (
	"strings"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

func (s *Service) validate(form ProductForm) (ProductForm, error) {
	form.SKU = strings.ToUpper(strings.TrimSpace(form.SKU))
	form.Name = strings.TrimSpace(form.Name)
	if form.SKU == "" {
		return form, shared.Validationf("product sku is required")
	}
	if form.Name == "" {
		return form, shared.Validationf("product name is required")
	}
	if form.Price.IsNegative() {
		return form, shared.Validationf("price must not be negative")
	}
	if form.MinStockThreshold < 0 {
		return form, shared.Validationf("min stock threshold must not be negative")
	}
	form.Price = shared.RoundMoney(form.Price)
	return form, nil
}
