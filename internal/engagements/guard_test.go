package engagements

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

func TestIsApplicationAllowed(t *testing.T) {
	freelancer := uuid.New()
	project := uuid.New()
	other := uuid.New()

	cases := []struct {
		name     string
		existing []models.Engagement
		want     bool
	}{
		{name: "empty", want: true},
		{
			name: "pending pair blocks",
			existing: []models.Engagement{
				{FreelancerID: freelancer, ProjectID: project, Status: enums.EngagementStatusPending},
			},
			want: false,
		},
		{
			name: "completed pair blocks",
			existing: []models.Engagement{
				{FreelancerID: freelancer, ProjectID: project, Status: enums.EngagementStatusCompleted},
			},
			want: false,
		},
		{
			name: "rejected pair allows reapply",
			existing: []models.Engagement{
				{FreelancerID: freelancer, ProjectID: project, Status: enums.EngagementStatusRejected},
			},
			want: true,
		},
		{
			name: "other freelancer on same project",
			existing: []models.Engagement{
				{FreelancerID: other, ProjectID: project, Status: enums.EngagementStatusInProgress},
			},
			want: true,
		},
		{
			name: "same freelancer on other project",
			existing: []models.Engagement{
				{FreelancerID: freelancer, ProjectID: other, Status: enums.EngagementStatusPending},
			},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsApplicationAllowed(tc.existing, freelancer, project); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]enums.EngagementStatus]bool{
		{enums.EngagementStatusPending, enums.EngagementStatusInProgress}:   true,
		{enums.EngagementStatusPending, enums.EngagementStatusRejected}:     true,
		{enums.EngagementStatusInProgress, enums.EngagementStatusCompleted}: true,
		{enums.EngagementStatusInProgress, enums.EngagementStatusRejected}:  true,
	}
	all := []enums.EngagementStatus{
		enums.EngagementStatusPending,
		enums.EngagementStatusInProgress,
		enums.EngagementStatusCompleted,
		enums.EngagementStatusRejected,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]enums.EngagementStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}
