package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/larkspur-bakery/storefront/internal/platform/httpx"
	"github.com/larkspur-bakery/storefront/internal/platform/validate"
	"github.com/larkspur-bakery/storefront/internal/shared"
)

// Handler wires HTTP endpoints for admin authentication.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validate.New()}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// MountSessionRoutes registers routes that require a verified token.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validate.Summary(err))
		return
	}
	token, expires, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Info("admin login failed", slog.String("email", req.Email))
			httpx.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("admin login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires.UTC()})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.Error(w, http.StatusUnauthorized, "authorization required")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":         claims.Subject,
		"email":      claims.Email,
		"expires_at": claims.ExpiresAt.Time.UTC(),
	})
}
