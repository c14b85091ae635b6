package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/registry"
)

// rowOutcome is what happened to one outbox row within a batch.
type rowOutcome int

const (
	rowPublished rowOutcome = iota
	rowDeadLettered
	rowRetry
)

// drainOnce handles one locked batch and reports whether any row was
// published or parked.
func (r *Relay) drainOnce(ctx context.Context) (bool, error) {
	progressed := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.outbox.FetchUnpublishedForPublish(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil || len(rows) == 0 {
			return err
		}
		r.metrics.ObserveBatch(len(rows))

		held := make(map[uuid.UUID]bool)
		for _, row := range rows {
			if held[row.AggregateID] {
				continue
			}
			outcome, err := r.deliver(ctx, tx, row)
			if err != nil {
				return err
			}
			if outcome == rowRetry {
				held[row.AggregateID] = true
				continue
			}
			progressed = true
		}
		return nil
	})
	return progressed, err
}

// deliver publishes one row and records the result inside tx. Only a failure
// to record is returned; publish failures become outcomes.
func (r *Relay) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (rowOutcome, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return rowDeadLettered, r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{"event_id": resolved.Envelope.EventID, "topic": resolved.Topic})

	pubErr := r.publish(ctx, row, resolved)
	var permanent registry.NonRetryableError
	switch {
	case pubErr == nil:
		if err := r.outbox.MarkPublishedTx(tx, row.ID); err != nil {
			return rowPublished, fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.Inc(string(row.EventType), metrics.OutboxPublished)
		r.logg.Debug(ctx, "outbox event published")
		return rowPublished, nil
	case errors.As(pubErr, &permanent):
		return rowDeadLettered, r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr)
	case row.AttemptCount+1 >= r.opts.MaxAttempts:
		return rowDeadLettered, r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, pubErr))
	}

	r.logg.Warn(r.logg.WithField(ctx, "error", pubErr.Error()), "outbox publish failed, holding back aggregate")
	if err := r.outbox.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return rowRetry, fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	r.metrics.Inc(string(row.EventType), metrics.OutboxRetried)
	return rowRetry, nil
}

// deadLetter copies row into outbox_dlq and pins its attempt counter so the
// fetch query skips it from now on.
func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event dead-lettered")

	if err := r.dlq.InsertTx(tx, row.DeadLetter(reason, cause, r.now())); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.outbox.MarkTerminalTx(tx, row.ID, cause, r.opts.MaxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	r.metrics.Inc(string(row.EventType), metrics.OutboxDeadLettered)
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	pub := r.publishers(resolved.Topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", resolved.Topic))
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.PublishTimeout)
	defer cancel()
	result := pub.Publish(ctx, message(row, resolved))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("topic %q returned no publish result", resolved.Topic))
	}
	_, err := result.Get(ctx)
	return err
}

// message carries the stored envelope verbatim. Consumers filter on the
// attributes without decoding the body.
func message(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.OrderingKey(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"event_version":  strconv.Itoa(resolved.Envelope.Version),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}
