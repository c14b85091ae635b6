package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is stamped on envelopes when the emitter leaves Version unset.
const CurrentVersion = 1

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. EventID is the consumer-side
// deduplication key and Version selects the payload decoder.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return env, nil
}

// ParseEnvelope decodes raw and checks the fields every reader relies on.
// Envelopes written before versioning read as version 1.
func ParseEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if _, err := uuid.Parse(env.EventID); err != nil {
		return env, fmt.Errorf("envelope event id %q: %w", env.EventID, err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, errors.New("envelope has no data")
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	return env, nil
}

// EventUUID returns the parsed EventID, or uuid.Nil when it is malformed.
func (e PayloadEnvelope) EventUUID() uuid.UUID {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
