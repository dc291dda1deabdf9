package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/larkspur-bakery/storefront/internal/admin"
	"github.com/larkspur-bakery/storefront/internal/catalog"
	"github.com/larkspur-bakery/storefront/internal/content"
	"github.com/larkspur-bakery/storefront/internal/enquiries"
	"github.com/larkspur-bakery/storefront/internal/observability"
	"github.com/larkspur-bakery/storefront/internal/orders"
	"github.com/larkspur-bakery/storefront/internal/platform/httpx"
	"github.com/larkspur-bakery/storefront/internal/shared"
	"github.com/larkspur-bakery/storefront/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	CSRFManager *shared.CSRFManager
	Metrics     *observability.Metrics
	AdminTokens *admin.TokenIssuer

	CatalogHandler   *catalog.Handler
	ContentHandler   *content.Handler
	OrdersHandler    *orders.Handler
	EnquiriesHandler *enquiries.Handler
	AdminHandler     *admin.Handler
	JobHandler       *jobs.Handler

	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter constructs the chi.Router for the storefront API.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	mwCfg := MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		CSRFManager: params.CSRFManager,
		Metrics:     params.Metrics,
	}

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(mwCfg) {
		r.Use(mw)
	}
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(params.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Ready(ctx); err != nil {
				params.Logger.Warn("readiness check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf-token", csrfTokenHandler(mwCfg))

		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		if params.ContentHandler != nil {
			r.Route("/posts", params.ContentHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(CSRFMiddleware(mwCfg))
			if params.OrdersHandler != nil {
				r.Route("/orders", params.OrdersHandler.MountRoutes)
			}
			if params.EnquiriesHandler != nil {
				r.Route("/enquiries", params.EnquiriesHandler.MountRoutes)
			}
		})

		if params.AdminHandler == nil || params.AdminTokens == nil {
			return
		}
		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(CSRFMiddleware(mwCfg))
				params.AdminHandler.MountRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(admin.Middleware(params.AdminTokens, params.Logger))
				params.AdminHandler.MountSessionRoutes(r)
				if params.CatalogHandler != nil {
					r.Route("/products", params.CatalogHandler.MountAdminRoutes)
				}
				if params.OrdersHandler != nil {
					r.Route("/orders", params.OrdersHandler.MountAdminRoutes)
				}
				if params.JobHandler != nil {
					r.Route("/jobs", params.JobHandler.MountRoutes)
				}
			})
		})
	})

	return r
}
