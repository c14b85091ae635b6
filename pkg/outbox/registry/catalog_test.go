package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
)

func TestCatalogVersions(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(enums.EventDiscussionPosted, enums.AggregateDiscussionEntry, 1, JSON[payloads.DiscussionPostedEvent]))
	require.NoError(t, c.Register(enums.EventDiscussionPosted, enums.AggregateDiscussionEntry, 2, func(json.RawMessage) (any, error) {
		return "v2", nil
	}))

	out, err := c.Decode(enums.EventDiscussionPosted, 1, json.RawMessage(`{"preview":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", out.(*payloads.DiscussionPostedEvent).Preview)

	out, err = c.Decode(enums.EventDiscussionPosted, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)

	_, err = c.Decode(enums.EventDiscussionPosted, 3, nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	_, err = c.Decode(enums.EventEngagementApplied, 1, nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestCatalogRejectsConflictingAggregate(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(enums.EventEngagementApplied, enums.AggregateEngagement, 1, JSON[payloads.EngagementAppliedEvent]))
	assert.Error(t, c.Register(enums.EventEngagementApplied, enums.AggregateDiscussionEntry, 2, JSON[payloads.EngagementAppliedEvent]))
	assert.Error(t, c.Register(enums.EventEngagementApplied, enums.AggregateEngagement, 0, JSON[payloads.EngagementAppliedEvent]))
}

func TestEngagementsCatalogCoversEveryEvent(t *testing.T) {
	c := Engagements()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventEngagementApplied,
		enums.EventEngagementStatusChanged,
		enums.EventEngagementSettled,
		enums.EventDiscussionPosted,
	} {
		_, ok := c.Aggregate(eventType)
		assert.True(t, ok, "%s missing", eventType)
	}

	id := uuid.New()
	out, err := c.Decode(enums.EventEngagementSettled, 1, json.RawMessage(`{"engagementId":"`+id.String()+`","amount":"12.50"}`))
	require.NoError(t, err)
	settled := out.(*payloads.EngagementSettledEvent)
	assert.Equal(t, id, settled.EngagementID)
	assert.Equal(t, "12.5", settled.Amount.String())
}

func TestCatalogDecodeError(t *testing.T) {
	_, err := Engagements().Decode(enums.EventEngagementApplied, 1, json.RawMessage(`{"engagementId":42}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)
}
