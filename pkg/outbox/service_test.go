package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/internal/testdb"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

func TestEmitWritesEnvelope(t *testing.T) {
	db := testdb.Open(t)
	svc := NewService(NewRepository(db), nil)

	aggregateID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "client"}
	err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventEngagementStatusChanged,
		AggregateType: enums.AggregateEngagement,
		AggregateID:   aggregateID,
		Actor:         actor,
		Data:          map[string]string{"to": "in-progress"},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, CurrentVersion, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"to":"in-progress"}`, string(envelope.Data))
}

func TestEmitRejectsInvalidEventsAndMissingTx(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	ctx := context.Background()

	err := svc.Emit(ctx, nil, DomainEvent{EventType: enums.EventEngagementApplied})
	assert.ErrorContains(t, err, "aggregate type")

	err = svc.Emit(ctx, nil, DomainEvent{
		EventType:     enums.EventEngagementApplied,
		AggregateType: enums.AggregateEngagement,
		AggregateID:   uuid.New(),
	})
	assert.ErrorIs(t, err, errTxRequired)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := testdb.Open(t)
	svc := NewService(NewRepository(db), nil)
	event := DomainEvent{
		EventType:     enums.EventEngagementSettled,
		AggregateType: enums.AggregateEngagement,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"amount": "10"},
	}

	require.NoError(t, svc.EmitIfNotExists(context.Background(), db, event))
	require.NoError(t, svc.EmitIfNotExists(context.Background(), db, event))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
