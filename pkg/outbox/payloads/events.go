package payloads

import (
	"time"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EngagementAppliedEvent is emitted when a freelancer applies to a project.
type EngagementAppliedEvent struct {
	EngagementID uuid.UUID `json:"engagementId"`
	ProjectID    uuid.UUID `json:"projectId"`
	FreelancerID uuid.UUID `json:"freelancerId"`
	ClientID     uuid.UUID `json:"clientId"`
	ProjectTitle string    `json:"projectTitle"`
}

// EngagementStatusChangedEvent covers accept and reject transitions.
type EngagementStatusChangedEvent struct {
	EngagementID uuid.UUID              `json:"engagementId"`
	ProjectID    uuid.UUID              `json:"projectId"`
	FreelancerID uuid.UUID              `json:"freelancerId"`
	ClientID     uuid.UUID              `json:"clientId"`
	From         enums.EngagementStatus `json:"from"`
	To           enums.EngagementStatus `json:"to"`
	ChangedAt    time.Time              `json:"changedAt"`
}

// EngagementSettledEvent is emitted in the same transaction that credits the
// freelancer's balance.
type EngagementSettledEvent struct {
	EngagementID uuid.UUID       `json:"engagementId"`
	ProjectID    uuid.UUID       `json:"projectId"`
	FreelancerID uuid.UUID       `json:"freelancerId"`
	ClientID     uuid.UUID       `json:"clientId"`
	Amount       decimal.Decimal `json:"amount"`
	SettledAt    time.Time       `json:"settledAt"`
	Repaired     bool            `json:"repaired,omitempty"`
}

// DiscussionPostedEvent tells the counterpart a new message arrived.
type DiscussionPostedEvent struct {
	EntryID      uuid.UUID `json:"entryId"`
	EngagementID uuid.UUID `json:"engagementId"`
	SenderID     uuid.UUID `json:"senderId"`
	RecipientID  uuid.UUID `json:"recipientId"`
	Preview      string    `json:"preview"`
}
