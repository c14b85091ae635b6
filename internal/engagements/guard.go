package engagements

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

// IsApplicationAllowed reports whether freelancerID may apply to projectID
// given the existing engagements. Rejected engagements do not count, so a
// freelancer can reapply after rejection.
func IsApplicationAllowed(existing []models.Engagement, freelancerID, projectID uuid.UUID) bool {
	for _, engagement := range existing {
		if engagement.Status == enums.EngagementStatusRejected {
			continue
		}
		if engagement.FreelancerID == freelancerID && engagement.ProjectID == projectID {
			return false
		}
	}
	return true
}
