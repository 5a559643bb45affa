package inventory

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

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balances", h.listBalances)
	r.Get("/movements", h.listMovements)
	r.Get("/summary", h.summary)
	r.Get("/locations", h.listLocations)
	r.Get("/transfers", h.listTransfers)
	r.Get("/transfers/{id}", h.getTransfer)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleInventory))
		r.Post("/transfers", h.createTransfer)
		r.Post("/transfers/{id}/complete", h.completeTransfer)
		r.Post("/transfers/{id}/cancel", h.cancelTransfer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin))
		r.Post("/adjustments", h.adjust)
		r.Post("/locations", h.createLocation)
		r.Put("/locations/{id}", h.updateLocation)
		r.Post("/locations/{id}/deactivate", h.deactivateLocation)
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Warn("inventory request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func queryInt(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListBalances(r.Context(), BalanceFilter{
		ProductID:  queryInt(r, "product_id"),
		LocationID: queryInt(r, "location_id"),
	})
	if err != nil {
		h.fail(w, "list balances", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListMovements(r.Context(), queryInt(r, "product_id"), queryInt(r, "location_id"), int(queryInt(r, "limit")))
	if err != nil {
		h.fail(w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.StockSummary(r.Context())
	if err != nil {
		h.fail(w, "stock summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListLocations(r.Context())
	if err != nil {
		h.fail(w, "list locations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	rows, err := h.service.ListTransfers(r.Context(), TransferFilter{
		Status:    TransferStatus(r.URL.Query().Get("status")),
		ProductID: queryInt(r, "product_id"),
		Limit:     page.Limit(),
		Offset:    page.Offset(),
	})
	if err != nil {
		h.fail(w, "list transfers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.GetTransfer(r.Context(), id)
	if err != nil {
		h.fail(w, "get transfer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req TransferInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.CreateTransfer(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create transfer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) completeTransfer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete transfer", h.service.CompleteTransfer)
}

func (h *Handler) cancelTransfer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel transfer", h.service.CancelTransfer)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, shared.Actor, int64) (StockTransfer, error)) {
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
	t, err := fn(r.Context(), actor, id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AdjustmentInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mv, err := h.service.Adjust(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req LocationInput
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	loc, err := h.service.CreateLocation(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create location", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, loc)
}

type updateLocationRequest struct {
	LocationInput
	Version int64 `json:"version" validate:"required,gt=0"`
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
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
	var req updateLocationRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	loc, err := h.service.UpdateLocation(r.Context(), actor, id, req.Version, req.LocationInput)
	if err != nil {
		h.fail(w, "update location", err)
		return
	}
	httpx.JSON(w, http.StatusOK, loc)
}

func (h *Handler) deactivateLocation(w http.ResponseWriter, r *http.Request) {
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
	loc, err := h.service.DeactivateLocation(r.Context(), actor, id, req.Version)
	if err != nil {
		h.fail(w, "deactivate location", err)
		return
	}
	httpx.JSON(w, http.StatusOK, loc)
}
