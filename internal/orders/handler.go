package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/larkspur-bakery/storefront/internal/platform/httpx"
)

// IdempotencyHeader may carry the checkout idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// ActorFunc names the authenticated admin behind a request.
type ActorFunc func(r *http.Request) string

// Handler wires HTTP endpoints for orders.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actor   ActorFunc
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actor ActorFunc) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if actor == nil {
		actor = func(*http.Request) string { return "" }
	}
	return &Handler{logger: logger, service: service, actor: actor}
}

// MountRoutes registers storefront order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.checkout)
	r.Get("/{number}", h.lookup)
}

// MountAdminRoutes registers order management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{number}", h.show)
	r.Post("/{number}/status", h.updateStatus)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	}
	order, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		h.writeError(w, "checkout", err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+order.Number)
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "email query parameter required")
		return
	}
	order, err := h.service.Lookup(r.Context(), chi.URLParam(r, "number"), email)
	if err != nil {
		h.writeError(w, "lookup order", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if v := q.Get("status"); v != "" {
		status, err := ParseStatus(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		filter.Status = status
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	order, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "number"), status, h.actor(r))
	if err != nil {
		h.writeError(w, "update order status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
	case errors.Is(err, ErrInvalidCheckout):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicateCheckout):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
