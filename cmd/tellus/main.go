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

	"github.com/tellus-gis/tellus/internal/app"
	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/observability"
	"github.com/tellus-gis/tellus/internal/permission"
	"github.com/tellus-gis/tellus/internal/platform/cache"
	"github.com/tellus-gis/tellus/internal/platform/db"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, group cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo, logger)
	groupResolver := identity.NewKeycloakResolver(identity.KeycloakConfig{
		BaseURL:      cfg.KeycloakBaseURL,
		Realm:        cfg.KeycloakRealm,
		ClientID:     cfg.KeycloakClientID,
		ClientSecret: cfg.KeycloakClientSecret,
		CacheTTL:     cfg.GroupCacheTTL,
	}, identityRepo, redisClient, logger)

	stores := permission.NewStores(pool)
	userInstance := permission.NewUserInstanceService(stores.UserInstance, identityService, logger)
	groupInstance := permission.NewGroupInstanceService(stores.GroupInstance, groupResolver, logger)
	userClass := permission.NewUserClassService(stores.UserClass, logger)
	groupClass := permission.NewGroupClassService(stores.GroupClass, groupResolver, logger)

	strategy := permission.NewDefaultStrategy(userInstance, groupInstance, userClass, groupClass)
	evaluator := permission.NewEvaluator(identityService, strategy, metrics, logger)

	permissionsHandler := permission.NewHandler(logger, userInstance, groupInstance, userClass, groupClass, identityService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		PermissionsHandler: permissionsHandler,
		Evaluator:          evaluator,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("stopped")
}
