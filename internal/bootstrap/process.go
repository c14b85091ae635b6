// Package bootstrap is the startup sequence every GigBridge binary shares:
// environment, config, logger, database, dev migrations and the metrics
// registry, plus orderly shutdown of whatever was opened along the way.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/db"
	"github.com/angelmondragon/gigbridge-backend/pkg/instance"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/migrate"
	"github.com/angelmondragon/gigbridge-backend/pkg/pubsub"
	"github.com/angelmondragon/gigbridge-backend/pkg/redis"
)

type closer struct {
	name  string
	close func() error
}

// Process is one running binary.
type Process struct {
	Name     string
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Registry *prometheus.Registry

	closers []closer
}

// Start loads .env and config, then connects the database. A failure after
// the database opened closes it before returning.
func Start(ctx context.Context, name string) (*Process, error) {
	if err := godotenv.Load(); err != nil {
		logger.New(logger.Options{ServiceName: name}).Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = name

	p := &Process{
		Name:   name,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: name,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
		Registry: prometheus.NewRegistry(),
	}
	p.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p.DB, err = db.New(ctx, cfg.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p.OnClose("database", p.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, p.Logger, p.DB); err != nil {
		p.Close()
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return p, nil
}

// OnClose registers fn to run during Close. Closers run last-registered first.
func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, close: fn})
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	p.OnClose("redis", client.Close)
	return client, nil
}

func (p *Process) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	p.OnClose("pubsub", client.Close)
	return client, nil
}

// Close releases everything opened through p and reports every failure.
func (p *Process) Close() error {
	var errs error
	for _, c := range slices.Backward(p.closers) {
		if err := c.close(); err != nil {
			p.Logger.Error(context.Background(), "error closing "+c.name, err)
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	p.closers = nil
	return errs
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the fields
// every log line of the process should have.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = p.Logger.WithFields(ctx, map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Name,
		"instance":    instance.GetID(),
	})
	return ctx, stop
}

// ServeMetrics exposes p.Registry on the configured metrics address until
// ctx ends.
func (p *Process) ServeMetrics(ctx context.Context) {
	go func() {
		if err := metrics.Serve(ctx, p.Config.Service.MetricsAddr, p.Registry, p.Logger); err != nil {
			p.Logger.Error(ctx, "metrics endpoint stopped", err)
		}
	}()
}

// Fatal logs err, closes p and exits non-zero. Deferred calls do not run.
func (p *Process) Fatal(ctx context.Context, msg string, err error) {
	p.Logger.Error(ctx, msg, err)
	_ = p.Close()
	os.Exit(1)
}

// Exit reports a Start failure for name and exits non-zero.
func Exit(name string, err error) {
	logger.New(logger.Options{ServiceName: name}).Error(context.Background(), "startup failed", err)
	os.Exit(1)
}
