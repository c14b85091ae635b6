package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/registry"
)

type recordingRepo struct {
	created []models.Notification
	err     error
}

func (r *recordingRepo) Create(ctx context.Context, n *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, *n)
	return nil
}

type stubUsers struct {
	user *models.User
	err  error
}

func (s stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, s.err
}

type memoryTracker struct {
	seen    map[uuid.UUID]bool
	deleted []uuid.UUID
	err     error
}

func (m *memoryTracker) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[uuid.UUID]bool{}
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *memoryTracker) Release(ctx context.Context, eventID uuid.UUID) error {
	delete(m.seen, eventID)
	m.deleted = append(m.deleted, eventID)
	return nil
}

type recordingMailer struct {
	sent []SettlementEmail
	err  error
}

func (m *recordingMailer) SendSettlementEmail(ctx context.Context, msg SettlementEmail) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func newTestConsumer(repo repository, users userReader, mailer Mailer, tracker processedTracker) *Consumer {
	return &Consumer{
		repo:        repo,
		users:       users,
		mailer:      mailer,
		idempotency: tracker,
		decoders:    registry.Engagements(),
		logg:        logger.Nop(),
	}
}

func eventMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumerAppliedNotifiesClient(t *testing.T) {
	repo := &recordingRepo{}
	c := newTestConsumer(repo, stubUsers{}, &recordingMailer{}, &memoryTracker{})
	clientID := uuid.New()

	res := c.process(context.Background(), eventMessage(t, enums.EventEngagementApplied, uuid.New(), payloads.EngagementAppliedEvent{
		EngagementID: uuid.New(),
		ClientID:     clientID,
		ProjectTitle: "Landing page",
	}))

	assert.True(t, res.ack)
	require.Len(t, repo.created, 1)
	assert.Equal(t, clientID, repo.created[0].UserID)
	assert.Equal(t, enums.NotificationTypeEngagementApplied, repo.created[0].Type)
	assert.Contains(t, repo.created[0].Message, "Landing page")
}

func TestConsumerStatusChangeNotifiesFreelancer(t *testing.T) {
	repo := &recordingRepo{}
	c := newTestConsumer(repo, stubUsers{}, &recordingMailer{}, &memoryTracker{})
	freelancerID := uuid.New()

	res := c.process(context.Background(), eventMessage(t, enums.EventEngagementStatusChanged, uuid.New(), payloads.EngagementStatusChangedEvent{
		EngagementID: uuid.New(),
		FreelancerID: freelancerID,
		From:         enums.EngagementStatusPending,
		To:           enums.EngagementStatusInProgress,
	}))

	assert.True(t, res.ack)
	require.Len(t, repo.created, 1)
	assert.Equal(t, freelancerID, repo.created[0].UserID)
	assert.Equal(t, "Application accepted", repo.created[0].Title)
}

func TestConsumerSettlementSendsEmailOnce(t *testing.T) {
	repo := &recordingRepo{}
	mailer := &recordingMailer{}
	freelancer := &models.User{ID: uuid.New(), Email: "dev@example.com", Name: "Dev"}
	c := newTestConsumer(repo, stubUsers{user: freelancer}, mailer, &memoryTracker{})
	eventID := uuid.New()
	msg := eventMessage(t, enums.EventEngagementSettled, eventID, payloads.EngagementSettledEvent{
		EngagementID: uuid.New(),
		FreelancerID: freelancer.ID,
		Amount:       decimal.RequireFromString("250.50"),
	})

	assert.True(t, c.process(context.Background(), msg).ack)
	assert.True(t, c.process(context.Background(), msg).ack)

	require.Len(t, repo.created, 1)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "dev@example.com", mailer.sent[0].Email)
	assert.True(t, mailer.sent[0].Amount.Equal(decimal.RequireFromString("250.50")))
}

func TestConsumerMailerFailureDoesNotNack(t *testing.T) {
	repo := &recordingRepo{}
	mailer := &recordingMailer{err: errors.New("smtp down")}
	c := newTestConsumer(repo, stubUsers{user: &models.User{Email: "dev@example.com"}}, mailer, &memoryTracker{})

	res := c.process(context.Background(), eventMessage(t, enums.EventEngagementSettled, uuid.New(), payloads.EngagementSettledEvent{
		EngagementID: uuid.New(),
		FreelancerID: uuid.New(),
		Amount:       decimal.NewFromInt(10),
	}))

	assert.True(t, res.ack)
	assert.False(t, res.nack)
	assert.Len(t, repo.created, 1)
}

func TestConsumerStoreFailureReleasesMarker(t *testing.T) {
	repo := &recordingRepo{err: errors.New("db down")}
	tracker := &memoryTracker{}
	c := newTestConsumer(repo, stubUsers{}, &recordingMailer{}, tracker)
	eventID := uuid.New()

	res := c.process(context.Background(), eventMessage(t, enums.EventDiscussionPosted, eventID, payloads.DiscussionPostedEvent{
		EngagementID: uuid.New(),
		RecipientID:  uuid.New(),
		Preview:      "hello",
	}))

	assert.True(t, res.nack)
	assert.Equal(t, []uuid.UUID{eventID}, tracker.deleted)
}

func TestConsumerSkipsUnknownAndMalformed(t *testing.T) {
	repo := &recordingRepo{}
	c := newTestConsumer(repo, stubUsers{}, &recordingMailer{}, &memoryTracker{})

	unknown := &pubsub.Message{ID: "1", Data: []byte(`{}`), Attributes: map[string]string{"event_type": "order_created"}}
	assert.True(t, c.process(context.Background(), unknown).ack)

	malformed := &pubsub.Message{ID: "2", Data: []byte(`not json`), Attributes: map[string]string{"event_type": string(enums.EventDiscussionPosted)}}
	assert.True(t, c.process(context.Background(), malformed).ack)

	assert.Empty(t, repo.created)
}

func TestConsumerIdempotencyErrorNacks(t *testing.T) {
	c := newTestConsumer(&recordingRepo{}, stubUsers{}, &recordingMailer{}, &memoryTracker{err: errors.New("redis down")})

	res := c.process(context.Background(), eventMessage(t, enums.EventEngagementApplied, uuid.New(), payloads.EngagementAppliedEvent{
		ClientID: uuid.New(),
	}))
	assert.True(t, res.nack)
}
