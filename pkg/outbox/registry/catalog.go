package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
)

// ErrUnknownEvent is returned for event types or versions nobody registered.
var ErrUnknownEvent = errors.New("unknown event")

// DecodeFunc turns envelope data into a typed payload.
type DecodeFunc func(data json.RawMessage) (any, error)

type schema struct {
	aggregate enums.OutboxAggregateType
	versions  map[int]DecodeFunc
}

// Catalog records, per event type, the aggregate that emits it and how each
// envelope version decodes. The publisher and the consumers share one.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[enums.OutboxEventType]schema
}

func NewCatalog() *Catalog {
	return &Catalog{schemas: make(map[enums.OutboxEventType]schema)}
}

// Register adds decode for eventType at version. Every version of an event
// type must name the same aggregate.
func (c *Catalog) Register(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, version int, decode DecodeFunc) error {
	if decode == nil || version < 1 {
		return fmt.Errorf("register %s: decoder and positive version required", eventType)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.schemas[eventType]
	if !ok {
		s = schema{aggregate: aggregate, versions: make(map[int]DecodeFunc)}
		c.schemas[eventType] = s
	}
	if s.aggregate != aggregate {
		return fmt.Errorf("register %s: aggregate %s conflicts with %s", eventType, aggregate, s.aggregate)
	}
	s.versions[version] = decode
	return nil
}

// Aggregate reports which aggregate type emits eventType.
func (c *Catalog) Aggregate(eventType enums.OutboxEventType) (enums.OutboxAggregateType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[eventType]
	return s.aggregate, ok
}

func (c *Catalog) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	c.mu.RLock()
	decode, ok := c.schemas[eventType].versions[version]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s@v%d", ErrUnknownEvent, eventType, version)
	}
	out, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
	}
	return out, nil
}

// JSON decodes into a fresh *T.
func JSON[T any](data json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Engagements is the catalog of every event the engagement domain emits.
func Engagements() *Catalog {
	c := NewCatalog()
	for _, err := range []error{
		c.Register(enums.EventEngagementApplied, enums.AggregateEngagement, 1, JSON[payloads.EngagementAppliedEvent]),
		c.Register(enums.EventEngagementStatusChanged, enums.AggregateEngagement, 1, JSON[payloads.EngagementStatusChangedEvent]),
		c.Register(enums.EventEngagementSettled, enums.AggregateEngagement, 1, JSON[payloads.EngagementSettledEvent]),
		c.Register(enums.EventDiscussionPosted, enums.AggregateDiscussionEntry, 1, JSON[payloads.DiscussionPostedEvent]),
	} {
		if err != nil {
			panic(err)
		}
	}
	return c
}
