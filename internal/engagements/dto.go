package engagements

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigbridge-backend/internal/discussions"
	"github.com/angelmondragon/gigbridge-backend/internal/projects"
	"github.com/angelmondragon/gigbridge-backend/internal/users"
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

// ContentInput is a deliverable or proposal block submitted by a freelancer.
type ContentInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=10000"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
	Files       []string `json:"files" validate:"max=10,dive,url"`
}

// ApplyInput starts a pending engagement for the freelancer on the project.
type ApplyInput struct {
	FreelancerID uuid.UUID
	ProjectID    uuid.UUID
	Content      []ContentInput
}

// TransitionInput asks for the engagement to move to Status.
type TransitionInput struct {
	EngagementID uuid.UUID
	Status       string
	ActorUserID  uuid.UUID
	ActorRole    enums.UserRole
}

type RejectInput struct {
	EngagementID uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.UserRole
}

type AppendContentInput struct {
	EngagementID uuid.UUID
	ActorUserID  uuid.UUID
	Entry        ContentInput
}

type GetInput struct {
	EngagementID uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.UserRole
}

// SettleInput marks an in-progress engagement completed and pays it out.
type SettleInput struct {
	EngagementID uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.UserRole
}

// ListParams filters the engagement listing. Results are always scoped to
// what the actor may see.
type ListParams struct {
	ProjectID    *uuid.UUID
	FreelancerID *uuid.UUID
	Status       string
	Limit        int
	Cursor       string
	ActorUserID  uuid.UUID
	ActorRole    enums.UserRole
}

// SettlementResult reports the outcome of a settle call. AlreadySettled is
// true when a previous call completed the engagement; nothing was credited
// this time.
type SettlementResult struct {
	Engagement     *models.Engagement
	AlreadySettled bool
	Credited       bool
	Amount         decimal.Decimal
}

// TransitionResult reports what TransitionStatus did. Changed is false for
// same-status requests.
type TransitionResult struct {
	Engagement *models.Engagement
	Changed    bool
	Settlement *SettlementResult
}

// View is the wire shape of an engagement with its aggregated relations.
type View struct {
	ID           uuid.UUID              `json:"id"`
	ProjectID    uuid.UUID              `json:"projectId"`
	FreelancerID uuid.UUID              `json:"freelancerId"`
	Status       enums.EngagementStatus `json:"status"`
	Content      []models.ContentEntry  `json:"content"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	Project      *projects.Summary      `json:"project"`
	Freelancer   *users.Summary         `json:"freelancer"`
	Discussions  []discussions.EntryDTO `json:"discussions"`
}

// ListResult is one page of engagements.
type ListResult struct {
	Items  []View `json:"items"`
	Cursor string `json:"cursor"`
}

// NewView renders an aggregate for the API.
func NewView(agg discussions.Aggregate) View {
	content := agg.Engagement.Content
	if content == nil {
		content = []models.ContentEntry{}
	}
	return View{
		ID:           agg.Engagement.ID,
		ProjectID:    agg.Engagement.ProjectID,
		FreelancerID: agg.Engagement.FreelancerID,
		Status:       agg.Engagement.Status,
		Content:      content,
		CompletedAt:  agg.Engagement.CompletedAt,
		CreatedAt:    agg.Engagement.CreatedAt,
		UpdatedAt:    agg.Engagement.UpdatedAt,
		Project:      agg.Project,
		Freelancer:   agg.Freelancer,
		Discussions:  discussions.EntriesFromModels(agg.Discussions),
	}
}

// SummaryView is the bare engagement returned by write endpoints.
func SummaryView(e *models.Engagement) View {
	if e == nil {
		return View{}
	}
	return NewView(discussions.Aggregate{Engagement: *e})
}
