package invoices

import (
	"github.com/go-chi/chi/v5"

	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(coreshared.RoleSales))
		r.Post("/", h.Create)
		r.Post("/from-quotation", h.FromQuotation)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/verify", h.versioned(h.service.Verify))
		r.Post("/{id}/discount", h.ApplyDiscount)
		r.Post("/{id}/fulfill", h.versioned(h.service.Fulfill))
		r.Post("/{id}/cancel", h.versioned(h.service.Cancel))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(coreshared.RoleAccounts, coreshared.RoleSales))
		r.Post("/{id}/payments", h.AddPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(coreshared.RoleAdmin))
		r.Post("/{id}/discount-override", h.OverrideDiscount)
	})
}
