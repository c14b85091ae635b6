package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/gigbridge-backend/internal/bootstrap"
	"github.com/angelmondragon/gigbridge-backend/internal/notifications"
	"github.com/angelmondragon/gigbridge-backend/internal/users"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/registry"
)

const serviceName = "worker"

func main() {
	proc, err := bootstrap.Start(context.Background(), serviceName)
	if err != nil {
		bootstrap.Exit(serviceName, err)
	}
	defer proc.Close()

	ctx, stop := proc.SignalContext()
	defer stop()

	service, err := buildService(ctx, proc)
	if err != nil {
		proc.Fatal(ctx, "failed to wire worker", err)
	}

	proc.ServeMetrics(ctx)
	proc.Logger.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "worker stopped unexpectedly", err)
	}
	proc.Logger.Info(ctx, "worker shutting down gracefully")
}

func buildService(ctx context.Context, proc *bootstrap.Process) (*Service, error) {
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return nil, err
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return nil, err
	}

	guard, err := idempotency.NewGuard(redisClient, notifications.ConsumerName, proc.Config.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return nil, err
	}
	gormDB := proc.DB.DB()
	notifier, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repo:         notifications.NewRepository(gormDB),
		Users:        users.NewRepository(gormDB),
		Mailer:       notifications.NewLogMailer(proc.Logger),
		Subscription: pubsubClient.NotificationSubscription(),
		Idempotency:  guard,
		Decoders:     registry.Engagements(),
		Logger:       proc.Logger,
	})
	if err != nil {
		return nil, err
	}

	return NewService(ServiceParams{
		Logger: proc.Logger,
		Dependencies: map[string]pinger{
			"database": proc.DB,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Consumers: map[string]consumer{
			notifications.ConsumerName: notifier,
		},
	})
}
