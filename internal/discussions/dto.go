package discussions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
)

// EntryDTO is the wire shape of a discussion entry.
type EntryDTO struct {
	ID           uuid.UUID  `json:"id"`
	EngagementID uuid.UUID  `json:"engagementId"`
	SenderID     uuid.UUID  `json:"senderId"`
	Text         string     `json:"text"`
	Images       []string   `json:"images"`
	Files        []string   `json:"files"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

func EntryFromModel(entry models.DiscussionEntry) EntryDTO {
	images := entry.Images
	if images == nil {
		images = []string{}
	}
	files := entry.Files
	if files == nil {
		files = []string{}
	}
	return EntryDTO{
		ID:           entry.ID,
		EngagementID: entry.EngagementID,
		SenderID:     entry.SenderID,
		Text:         entry.Text,
		Images:       images,
		Files:        files,
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
	}
}

func EntriesFromModels(entries []models.DiscussionEntry) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, EntryFromModel(entry))
	}
	return out
}
