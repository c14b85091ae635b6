package users

import (
	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/google/uuid"
)

// Summary is the public projection of a user attached to engagement reads.
type Summary struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Role           enums.UserRole `json:"role"`
	CompletedCount int            `json:"completedCount"`
}

func SummaryFromModel(u *models.User) *Summary {
	if u == nil {
		return nil
	}
	return &Summary{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		CompletedCount: u.CompletedCount,
	}
}
