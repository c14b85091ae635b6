package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/registry"
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Options tune the relay. Zero values fall back to the config defaults.
type Options struct {
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

func optionsFrom(cfg config.OutboxConfig) Options {
	return Options{
		BatchSize:      cfg.BatchSize,
		MaxAttempts:    cfg.MaxAttempts,
		PollInterval:   cfg.PollInterval,
		MaxBackoff:     cfg.MaxBackoff,
		PublishTimeout: cfg.PublishTimeout,
	}
}

func (o Options) withDefaults() Options {
	orInt := func(v, d int) int {
		if v > 0 {
			return v
		}
		return d
	}
	orDur := func(v, d time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return d
	}
	o.BatchSize = orInt(o.BatchSize, 50)
	o.MaxAttempts = orInt(o.MaxAttempts, 10)
	o.PollInterval = orDur(o.PollInterval, 500*time.Millisecond)
	o.MaxBackoff = orDur(o.MaxBackoff, 10*time.Second)
	o.PublishTimeout = orDur(o.PublishTimeout, 15*time.Second)
	return o
}

type RelayParams struct {
	Options    Options
	Logger     *logger.Logger
	DB         txRunner
	PubSub     pubSubClient
	Outbox     outboxStore
	DLQ        dlqStore
	Resolver   resolver
	Publishers publisherFactory
	Metrics    *metrics.OutboxMetrics
}

// Relay drains outbox rows onto Pub/Sub. Rows for one aggregate share an
// ordering key, and a retryable failure holds back the rest of that
// aggregate's rows until the next batch.
type Relay struct {
	opts       Options
	logg       *logger.Logger
	db         txRunner
	pubsub     pubSubClient
	outbox     outboxStore
	dlq        dlqStore
	resolver   resolver
	publishers publisherFactory
	metrics    *metrics.OutboxMetrics
	now        func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Outbox == nil, p.DLQ == nil:
		return nil, errors.New("outbox and dlq repositories are required")
	case p.Resolver == nil:
		return nil, errors.New("event resolver is required")
	}
	publishers := p.Publishers
	if publishers == nil {
		publishers = newCachedPublisherFactory(p.PubSub)
	}
	return &Relay{
		opts:       p.Options.withDefaults(),
		logg:       p.Logger,
		db:         p.DB,
		pubsub:     p.PubSub,
		outbox:     p.Outbox,
		dlq:        p.DLQ,
		resolver:   p.Resolver,
		publishers: publishers,
		metrics:    p.Metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run polls until ctx ends. It sleeps only when a batch made no progress and
// backs off exponentially while batches fail.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": r.db.Ping, "pubsub": r.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}

	wait := newBackoff(r.opts.PollInterval, r.opts.MaxBackoff)
	for ctx.Err() == nil {
		progressed, err := r.drainOnce(ctx)
		var pause time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			pause = wait.fail()
		case progressed:
			wait.reset()
			continue
		default:
			pause = wait.reset()
		}
		if err := sleep(ctx, jitter(pause)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
