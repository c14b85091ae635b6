package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

// ContentEntry is one deliverable or proposal block attached to an engagement.
type ContentEntry struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Files       []string  `json:"files,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Engagement links a freelancer to a project and tracks its lifecycle.
type Engagement struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID    uuid.UUID              `gorm:"column:project_id;type:uuid;not null"`
	FreelancerID uuid.UUID              `gorm:"column:freelancer_id;type:uuid;not null"`
	Status       enums.EngagementStatus `gorm:"column:status;type:engagement_status_enum;not null"`
	Content      []ContentEntry         `gorm:"column:content;type:jsonb;serializer:json;not null"`
	CompletedAt  *time.Time             `gorm:"column:completed_at"`
	RejectedAt   *time.Time             `gorm:"column:rejected_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Engagement) TableName() string { return "engagements" }
