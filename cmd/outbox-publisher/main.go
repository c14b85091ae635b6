package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/internal/bootstrap"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/registry"
)

const serviceName = "outbox-publisher"

func main() {
	requeue := flag.String("requeue", "", "move a dead-lettered outbox event back into the publish queue and exit")
	flag.Parse()

	proc, err := bootstrap.Start(context.Background(), serviceName)
	if err != nil {
		bootstrap.Exit(serviceName, err)
	}
	defer proc.Close()

	ctx, stop := proc.SignalContext()
	defer stop()

	dlq := outbox.NewDLQRepository(proc.DB.DB())
	if *requeue != "" {
		ctx = proc.Logger.WithField(ctx, "event_id", *requeue)
		if err := requeueEvent(ctx, dlq, *requeue); err != nil {
			proc.Fatal(ctx, "requeue failed", err)
		}
		proc.Logger.Info(ctx, "dead-lettered event requeued")
		return
	}

	relay, err := buildRelay(ctx, proc, dlq)
	if err != nil {
		proc.Fatal(ctx, "failed to wire outbox relay", err)
	}

	proc.ServeMetrics(ctx)
	proc.Logger.Info(ctx, "starting outbox publisher")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "outbox publisher stopped unexpectedly", err)
	}
	proc.Logger.Info(ctx, "outbox publisher shutting down gracefully")
}

func buildRelay(ctx context.Context, proc *bootstrap.Process, dlq *outbox.DLQRepository) (*Relay, error) {
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return nil, err
	}
	resolver, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		return nil, err
	}
	return NewRelay(RelayParams{
		Options:  optionsFrom(proc.Config.Outbox),
		Logger:   proc.Logger,
		DB:       proc.DB,
		PubSub:   pubsubClient,
		Outbox:   outbox.NewRepository(proc.DB.DB()),
		DLQ:      dlq,
		Resolver: resolver,
		Metrics:  metrics.NewOutboxMetrics(proc.Registry),
	})
}

func requeueEvent(ctx context.Context, dlq *outbox.DLQRepository, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", raw, err)
	}
	return dlq.Requeue(ctx, id)
}
