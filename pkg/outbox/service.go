package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/gigbridge-backend/pkg/db"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

// settledEventConstraint is the partial unique index allowing one
// engagement_settled row per engagement.
const settledEventConstraint = "ux_outbox_events_event_aggregate"

// DomainEvent is what services hand to the outbox. Data is marshalled into
// the envelope's data field.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("invalid outbox event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("invalid aggregate type %q", e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return errors.New("aggregate id is required")
	}
	return nil
}

// Emitter is what domain services depend on to queue events inside their
// own transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

// Service is the Emitter backed by outbox_events.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// row validates event and renders it into the stored envelope.
func row(event DomainEvent) (models.OutboxEvent, string, error) {
	if err := event.validate(); err != nil {
		return models.OutboxEvent{}, "", err
	}
	env, err := newEnvelope(event)
	if err != nil {
		return models.OutboxEvent{}, "", err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("encode envelope: %w", err)
	}
	return models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, env.EventID, nil
}

// Emit queues event through tx. The publisher only sees the row once tx
// commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	outboxRow, eventID, err := row(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, outboxRow); err != nil {
		return err
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"event_id":     eventID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID.String(),
	}), "outbox event queued")
	return nil
}

// EmitIfNotExists is Emit guarded by a (type, aggregate) existence check.
// Losing the race to a concurrent settled-event writer counts as success.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, settledEventConstraint) {
		return nil
	}
	return err
}
