package procurement

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/httpx"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// Handler manages goods receipt endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listGRNs)
	r.Get("/{id}", h.getGRN)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleInventory))
		r.Post("/", h.createGRN)
		r.Put("/{id}", h.updateGRN)
		r.Post("/{id}/verify", h.transition("verify grn", h.service.VerifyGRN))
		r.Post("/{id}/cancel", h.transition("cancel grn", h.service.CancelGRN))
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn("procurement request failed", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) listGRNs(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	filter := GRNFilter{Status: GRNStatus(r.URL.Query().Get("status"))}
	filter.SupplierID, _ = strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	filter.LocationID, _ = strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	items, total, err := h.service.ListGRNs(r.Context(), filter, page)
	if err != nil {
		h.fail(w, "list grns", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) getGRN(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.GetGRN(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) createGRN(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateGRNInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.CreateGRN(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create grn", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) updateGRN(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateGRNInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.UpdateGRN(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, "update grn", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) transition(op string, fn func(context.Context, shared.Actor, int64, int64) (GoodsReceipt, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := httpx.Actor(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var req httpx.VersionRequest
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		g, err := fn(r.Context(), actor, id, req.Version)
		if err != nil {
			h.fail(w, op, err)
			return
		}
		httpx.JSON(w, http.StatusOK, g)
	}
}
