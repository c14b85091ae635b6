package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/gigbridge-backend/internal/bootstrap"
	"github.com/angelmondragon/gigbridge-backend/internal/cron"
	"github.com/angelmondragon/gigbridge-backend/internal/notifications"
	"github.com/angelmondragon/gigbridge-backend/pkg/instance"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
)

const serviceName = "cron-worker"

func main() {
	runJob := flag.String("run", "", "run a single job once and exit (settlement-reconcile|outbox-retention|notification-cleanup)")
	flag.Parse()

	proc, err := bootstrap.Start(context.Background(), serviceName)
	if err != nil {
		bootstrap.Exit(serviceName, err)
	}
	defer proc.Close()

	ctx, stop := proc.SignalContext()
	defer stop()

	service, err := buildService(ctx, proc)
	if err != nil {
		proc.Fatal(ctx, "failed to wire cron worker", err)
	}

	if *runJob != "" {
		ctx = proc.Logger.WithField(ctx, "job", *runJob)
		if err := service.RunNow(ctx, *runJob); err != nil {
			proc.Fatal(ctx, "manual cron run failed", err)
		}
		proc.Logger.Info(ctx, "manual cron run finished")
		return
	}

	proc.ServeMetrics(ctx)
	proc.Logger.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "cron worker stopped unexpectedly", err)
	}
	proc.Logger.Info(ctx, "cron worker shutting down gracefully")
}

func buildService(ctx context.Context, proc *bootstrap.Process) (*cron.Service, error) {
	cfg := proc.Config
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := buildRegistry(proc)
	if err != nil {
		return nil, err
	}

	// the lease has to cover a tick in which every job is due
	leaseTTL := cfg.Cron.JobTimeout*time.Duration(registry.Len()) + time.Minute
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName), instance.GetID(), leaseTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:     proc.Logger,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(proc.Registry),
		Tick:       cfg.Cron.Tick,
		JobTimeout: cfg.Cron.JobTimeout,
	})
}

// buildRegistry wires the settlement sweep and the two retention jobs. The
// sweep repairs through the same engagement service the API settles with.
func buildRegistry(proc *bootstrap.Process) (*cron.Registry, error) {
	cfg := proc.Config
	settlementMetrics := metrics.NewSettlementMetrics(proc.Registry)
	stack, err := proc.Engagements(settlementMetrics)
	if err != nil {
		return nil, err
	}

	reconcile, err := cron.NewSettlementReconcileJob(cron.SettlementReconcileJobParams{
		Logger:      proc.Logger,
		Engagements: stack.Engagements,
		Ledger:      stack.Ledger,
		Repairer:    stack.Service,
		Metrics:     settlementMetrics,
		Limit:       cfg.Cron.ReconcileBatchSize,
	})
	if err != nil {
		return nil, err
	}
	retention := func(days int) cron.RetentionJobParams {
		return cron.RetentionJobParams{Logger: proc.Logger, DB: proc.DB, RetentionDays: days}
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(retention(cfg.Cron.OutboxRetentionDays), stack.OutboxRepo)
	if err != nil {
		return nil, err
	}
	notificationCleanup, err := cron.NewNotificationCleanupJob(retention(cfg.Cron.NotificationRetentionDays), notifications.NewRepository(proc.DB.DB()))
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	err = multierr.Combine(
		registry.Register(reconcile, cfg.Cron.ReconcileEvery),
		registry.Register(outboxRetention, cfg.Cron.RetentionEvery),
		registry.Register(notificationCleanup, cfg.Cron.RetentionEvery),
	)
	if err != nil {
		return nil, err
	}
	return registry, nil
}
