package invoices

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/httpx"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type Handler struct {
	service *Service
	rbac    rbac.Middleware
	logger  *slog.Logger
}

func NewHandler(service *Service, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{service: service, rbac: rbac, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := coreshared.PageFromRequest(r)
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, coreshared.Validationf("invalid customer_id"))
			return
		}
		filter.CustomerID = id
	}
	items, total, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": coreshared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateInvoiceRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) FromQuotation(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req FromQuotationRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.CreateFromQuotation(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("convert quotation", slog.Int64("quotation_id", req.QuotationID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respond(w, func() (Invoice, error) { return h.service.UpdateDraft(r.Context(), actor, id, req) })
}

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req ApplyDiscountRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respond(w, func() (Invoice, error) { return h.service.ApplyDiscount(r.Context(), actor, id, req) })
}

func (h *Handler) OverrideDiscount(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req OverrideDiscountRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respond(w, func() (Invoice, error) { return h.service.OverrideDiscount(r.Context(), actor, id, req) })
}

func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respond(w, func() (Invoice, error) { return h.service.AddPayment(r.Context(), actor, id, req) })
}

type versionedAction func(ctx context.Context, actor coreshared.Actor, id, version int64) (Invoice, error)

func (h *Handler) versioned(action versionedAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := h.target(w, r)
		if !ok {
			return
		}
		var req httpx.VersionRequest
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		h.respond(w, func() (Invoice, error) { return action(r.Context(), actor, id, req.Version) })
	}
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (coreshared.Actor, int64, bool) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return coreshared.Actor{}, 0, false
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return coreshared.Actor{}, 0, false
	}
	return actor, id, true
}

func (h *Handler) respond(w http.ResponseWriter, run func() (Invoice, error)) {
	inv, err := run()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}
