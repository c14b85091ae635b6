package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/angelmondragon/gigbridge-backend/api/routes"
	"github.com/angelmondragon/gigbridge-backend/internal/bootstrap"
	"github.com/angelmondragon/gigbridge-backend/internal/discussions"
	"github.com/angelmondragon/gigbridge-backend/internal/notifications"
	"github.com/angelmondragon/gigbridge-backend/internal/uploads"
	"github.com/angelmondragon/gigbridge-backend/pkg/auth"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/storage/objectstore"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	proc, err := bootstrap.Start(context.Background(), serviceName)
	if err != nil {
		bootstrap.Exit(serviceName, err)
	}
	defer proc.Close()

	ctx, stop := proc.SignalContext()
	defer stop()

	handler, err := buildRouter(ctx, proc)
	if err != nil {
		proc.Fatal(ctx, "failed to wire api", err)
	}

	addr := ":" + listenPort(proc.Config.App.Port)
	ctx = proc.Logger.WithField(ctx, "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	proc.Logger.Info(ctx, "starting api server")
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			proc.Fatal(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			proc.Logger.Error(ctx, "api server shutdown failed", err)
		}
		proc.Logger.Info(ctx, "api server shut down gracefully")
	}
}

// listenPort prefers the platform-assigned PORT.
func listenPort(configured string) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return configured
}

func buildRouter(ctx context.Context, proc *bootstrap.Process) (http.Handler, error) {
	cfg := proc.Config
	logg := proc.Logger

	tokens, err := auth.NewKeys(cfg.JWT)
	if err != nil {
		return nil, err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return nil, err
	}
	store, err := objectstore.New(ctx, cfg.Storage, logg)
	if err != nil {
		return nil, err
	}

	stack, err := proc.Engagements(metrics.NewSettlementMetrics(proc.Registry))
	if err != nil {
		return nil, err
	}
	discussionService, err := discussions.NewService(stack.Discussions, stack.Aggregator, stack.Engagements, stack.Projects, proc.DB, stack.Outbox)
	if err != nil {
		return nil, err
	}
	uploadService, err := uploads.NewService(uploads.ServiceParams{
		Store:          store,
		Limiter:        redisClient,
		UploadTTL:      cfg.Storage.UploadURLExpiry,
		MaxUploadBytes: int64(cfg.Storage.MaxUploadMB) << 20,
	})
	if err != nil {
		return nil, err
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(proc.DB.DB()))
	if err != nil {
		return nil, err
	}

	return routes.NewRouter(routes.RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            proc.DB,
		Redis:         redisClient,
		ObjectStore:   store,
		Tokens:        tokens,
		Idempotency:   redisClient,
		Gatherer:      proc.Registry,
		HTTPMetrics:   metrics.NewHTTPMetrics(proc.Registry),
		Engagements:   stack.Service,
		Discussions:   discussionService,
		Uploads:       uploadService,
		Notifications: notificationService,
	}), nil
}
