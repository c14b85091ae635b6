package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
)

// ResolvedEvent is an outbox row ready to publish.
type ResolvedEvent struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// NonRetryableError marks a row that will never publish as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// EventRegistry routes catalogued events to their topic. Every engagement
// event shares one topic so a single ordering key covers an engagement.
type EventRegistry struct {
	catalog *Catalog
	topic   string
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.EngagementsTopic == "" {
		return nil, errors.New("engagements topic is required")
	}
	return &EventRegistry{catalog: Engagements(), topic: cfg.EngagementsTopic}, nil
}

// Resolve checks the row against the catalog and decodes its payload. Every
// failure is non-retryable since the row will not change on its own.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	aggregate, known := r.catalog.Aggregate(event.EventType)
	switch {
	case !known:
		return nil, permanent("unsupported event type %s", event.EventType)
	case aggregate != event.AggregateType:
		return nil, permanent("%s: aggregate %s, expected %s", event.EventType, event.AggregateType, aggregate)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("%s: missing aggregate id", event.EventType)
	}

	envelope, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload, err := r.catalog.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Topic: r.topic, Envelope: envelope, Payload: payload}, nil
}
