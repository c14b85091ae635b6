package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscussionEntry is one message on an engagement thread. Attachments are
// references to objects that were uploaded beforehand.
type DiscussionEntry struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EngagementID uuid.UUID  `gorm:"column:engagement_id;type:uuid;not null"`
	SenderID     uuid.UUID  `gorm:"column:sender_id;type:uuid;not null"`
	Text         string     `gorm:"column:text;type:text;not null"`
	Images       []string   `gorm:"column:images;type:jsonb;serializer:json;not null"`
	Files        []string   `gorm:"column:files;type:jsonb;serializer:json;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    *time.Time `gorm:"column:updated_at"`
}

func (DiscussionEntry) TableName() string { return "discussion_entries" }
