package quotations

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
		r.Put("/{id}", h.Update)
		r.Post("/{id}/approve", h.versioned(h.service.Approve))
		r.Post("/{id}/cancel", h.versioned(h.service.Cancel))
		r.Post("/{id}/expire", h.versioned(h.service.Expire))
		r.Delete("/{id}", h.Delete)
	})
}
