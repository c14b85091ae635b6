// Package idempotency deduplicates Pub/Sub redeliveries. A consumer claims an
// event id before acting on it and releases the claim when it fails, so the
// next redelivery can try again.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/instance"
	"github.com/angelmondragon/gigbridge-backend/pkg/redis"
)

// Guard holds claims for one consumer under
// gb:idempotency:evt:<consumer>:<event_id>. The stored value names the
// instance that claimed the event.
type Guard struct {
	store    redis.IdempotencyStore
	consumer string
	ttl      time.Duration
	now      func() time.Time
}

// NewGuard returns a guard for consumer. ttl bounds how long a processed id
// is remembered, so it must outlive the subscription's retention window.
func NewGuard(store redis.IdempotencyStore, consumer string, ttl time.Duration) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl <= 0:
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return &Guard{store: store, consumer: consumer, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this delivery won the event. False means another
// delivery already processed it or is processing it.
func (g *Guard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	marker := instance.GetID() + "@" + g.now().UTC().Format(time.RFC3339)
	won, err := g.store.SetNX(ctx, key, marker, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", eventID, err)
	}
	return won, nil
}

// Release drops the claim after a failed attempt.
func (g *Guard) Release(ctx context.Context, eventID uuid.UUID) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(eventID uuid.UUID) (string, error) {
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+g.consumer, eventID.String()), nil
}
