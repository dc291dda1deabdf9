package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/larkspur-bakery/storefront/internal/admin"
	"github.com/larkspur-bakery/storefront/internal/app"
	"github.com/larkspur-bakery/storefront/internal/catalog"
	"github.com/larkspur-bakery/storefront/internal/content"
	"github.com/larkspur-bakery/storefront/internal/enquiries"
	"github.com/larkspur-bakery/storefront/internal/observability"
	"github.com/larkspur-bakery/storefront/internal/orders"
	"github.com/larkspur-bakery/storefront/internal/platform/cache"
	"github.com/larkspur-bakery/storefront/internal/platform/db"
	"github.com/larkspur-bakery/storefront/internal/shared"
	"github.com/larkspur-bakery/storefront/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	csrfManager, err := cfg.NewCSRFManager()
	if err != nil {
		logger.Error("init csrf", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	catalogService := catalog.NewService(
		catalog.NewRepository(dbpool),
		cache.NewVersioned(redisClient, "catalog", cfg.CatalogCacheTTL),
		logger,
	)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	contentHandler := content.NewHandler(logger, content.NewService(content.NewRepository(dbpool)))

	ordersService := orders.NewService(orders.ServiceDeps{
		Repo:        orders.NewRepository(dbpool),
		Products:    catalogService,
		Idempotency: shared.NewIdempotencyStore(dbpool),
		Notifier:    jobClient,
		Metrics:     metrics,
		Logger:      logger,
	})
	ordersHandler := orders.NewHandler(logger, ordersService, admin.Actor)

	enquiriesHandler := enquiries.NewHandler(logger, enquiries.NewService(enquiries.NewRepository(dbpool), jobClient, logger))

	adminTokens := admin.NewTokenIssuer(cfg.AdminJWTSecret, cfg.AdminJWTTTL)
	adminHandler := admin.NewHandler(logger, admin.NewService(admin.NewRepository(dbpool), adminTokens, logger))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CSRFManager:      csrfManager,
		Metrics:          metrics,
		AdminTokens:      adminTokens,
		CatalogHandler:   catalogHandler,
		ContentHandler:   contentHandler,
		OrdersHandler:    ordersHandler,
		EnquiriesHandler: enquiriesHandler,
		AdminHandler:     adminHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Ready: func(ctx context.Context) error {
			if err := dbpool.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("production", cfg.IsProduction()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
