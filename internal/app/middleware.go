package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/larkspur-bakery/storefront/internal/observability"
	"github.com/larkspur-bakery/storefront/internal/platform/httpx"
	"github.com/larkspur-bakery/storefront/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger      *slog.Logger
	Config      *Config
	CSRFManager *shared.CSRFManager
	Metrics     *observability.Metrics
}

// MiddlewareStack installs the storefront middleware chain. CSRF protection
// is not part of it; route groups opt in with CSRFMiddleware.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	production := cfg.Config != nil && cfg.Config.IsProduction()
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		STSSeconds:            stsSeconds(production),
		STSIncludeSubdomains:  production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	limit := 120
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		limit = cfg.Config.RateLimitPerMinute
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// CSRFMiddleware rejects state-changing requests whose submitted token does
// not match a valid csrf-token cookie. Safe methods pass through.
func CSRFMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			submitted := shared.SubmittedToken(r)
			cookie := shared.CookieToken(r)
			if submitted == "" || cookie == "" {
				rejectCSRF(w, r, cfg, "missing", shared.ErrCSRFTokenMissing)
				return
			}
			if !cfg.CSRFManager.ValidateToken(submitted, cookie) {
				rejectCSRF(w, r, cfg, "invalid", shared.ErrCSRFTokenInvalid)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, cfg MiddlewareConfig, reason string, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("csrf validation failed",
			slog.String("reason", reason),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	cfg.Metrics.CSRFRejected(reason)
	httpx.Error(w, http.StatusForbidden, err.Error())
}

// csrfTokenHandler issues a token in the response body and the cookie.
func csrfTokenHandler(cfg MiddlewareConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := cfg.CSRFManager.IssueToken()
		if err != nil {
			cfg.Logger.Error("issue csrf token", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		cfg.CSRFManager.SetCookie(w, token)
		w.Header().Set("Cache-Control", "no-store")
		httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}
