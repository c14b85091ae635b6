package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/gigbridge-backend/pkg/outbox/registry"
)

// ConsumerName scopes the worker's idempotency claims.
const ConsumerName = "notification-worker"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

type processedTracker interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

// ConsumerParams wires the notification worker.
type ConsumerParams struct {
	Repo         repository
	Users        userReader
	Mailer       Mailer
	Subscription *pubsub.Subscriber
	Idempotency  processedTracker
	Decoders     *registry.Catalog
	Logger       *logger.Logger
}

// Consumer turns engagement events into in-app notifications and the
// settlement receipt email.
type Consumer struct {
	repo         repository
	users        userReader
	mailer       Mailer
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	decoders     payloadDecoder
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := params.Decoders
	if decoders == nil {
		decoders = registry.Engagements()
	}
	mailer := params.Mailer
	if mailer == nil {
		mailer = NewLogMailer(params.Logger)
	}
	return &Consumer{
		repo:         params.Repo,
		users:        params.Users,
		mailer:       mailer,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     decoders,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	envelope, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "dropping malformed envelope", err)
		return processResult{ack: true}
	}
	eventID := envelope.EventUUID()
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	won, err := c.idempotency.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !won {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(logCtx, eventID, payload); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		if relErr := c.idempotency.Release(ctx, eventID); relErr != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", relErr.Error()), "idempotency release failed; redelivery will be skipped")
		}
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventID uuid.UUID, payload interface{}) error {
	switch event := payload.(type) {
	case *payloads.EngagementAppliedEvent:
		return c.notify(ctx, &models.Notification{
			UserID:  event.ClientID,
			EventID: &eventID,
			Type:    enums.NotificationTypeEngagementApplied,
			Title:   "New application",
			Message: fmt.Sprintf("A freelancer applied to %q.", event.ProjectTitle),
			Link:    engagementLink(event.EngagementID),
		})
	case *payloads.EngagementStatusChangedEvent:
		return c.notify(ctx, &models.Notification{
			UserID:  event.FreelancerID,
			EventID: &eventID,
			Type:    enums.NotificationTypeEngagementUpdated,
			Title:   statusTitle(event.To),
			Message: fmt.Sprintf("Your engagement moved from %s to %s.", event.From, event.To),
			Link:    engagementLink(event.EngagementID),
		})
	case *payloads.EngagementSettledEvent:
		if err := c.notify(ctx, &models.Notification{
			UserID:  event.FreelancerID,
			EventID: &eventID,
			Type:    enums.NotificationTypeSettlement,
			Title:   "Payment received",
			Message: fmt.Sprintf("%s was credited to your balance.", event.Amount.StringFixed(2)),
			Link:    engagementLink(event.EngagementID),
		}); err != nil {
			return err
		}
		c.sendSettlementEmail(ctx, event)
		return nil
	case *payloads.DiscussionPostedEvent:
		return c.notify(ctx, &models.Notification{
			UserID:  event.RecipientID,
			EventID: &eventID,
			Type:    enums.NotificationTypeDiscussion,
			Title:   "New message",
			Message: event.Preview,
			Link:    engagementLink(event.EngagementID),
		})
	default:
		c.logg.Info(ctx, "event not handled")
		return nil
	}
}

func (c *Consumer) notify(ctx context.Context, notification *models.Notification) error {
	if notification.UserID == uuid.Nil {
		return fmt.Errorf("recipient missing")
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(ctx, "recipient_id", notification.UserID.String()), "notification stored")
	return nil
}

// sendSettlementEmail never fails the event; the balance is already credited.
func (c *Consumer) sendSettlementEmail(ctx context.Context, event *payloads.EngagementSettledEvent) {
	user, err := c.users.FindByID(ctx, event.FreelancerID)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "settlement email recipient lookup failed")
		return
	}
	if user == nil {
		c.logg.Warn(ctx, "settlement email recipient missing")
		return
	}
	msg := SettlementEmail{Email: user.Email, Name: user.Name, Amount: event.Amount}
	if err := c.mailer.SendSettlementEmail(ctx, msg); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "settlement email failed")
	}
}

func statusTitle(to enums.EngagementStatus) string {
	switch to {
	case enums.EngagementStatusInProgress:
		return "Application accepted"
	case enums.EngagementStatusRejected:
		return "Application declined"
	case enums.EngagementStatusCompleted:
		return "Engagement completed"
	default:
		return "Engagement updated"
	}
}

func engagementLink(id uuid.UUID) *string {
	link := fmt.Sprintf("/engagements/%s", id)
	return &link
}
