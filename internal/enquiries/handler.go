package enquiries

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/larkspur-bakery/storefront/internal/platform/httpx"
	"github.com/larkspur-bakery/storefront/internal/shared"
)

// Handler exposes the enquiry endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers enquiry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.submit)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	enquiry, err := h.service.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidEnquiry) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("submit enquiry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"id": enquiry.ID, "status": "received"})
}

func decodeRequest(r *http.Request) (Request, error) {
	var req Request
	if !shared.IsFormPost(r) {
		err := httpx.DecodeJSON(r, &req)
		return req, err
	}
	servings, err := strconv.Atoi(r.PostFormValue("servings"))
	if err != nil {
		return req, errors.New("servings must be a number")
	}
	req = Request{
		Name:      r.PostFormValue("name"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
		EventDate: r.PostFormValue("event_date"),
		Servings:  servings,
		Message:   r.PostFormValue("message"),
	}
	return req, nil
}
