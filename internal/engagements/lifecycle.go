package engagements

import "github.com/angelmondragon/gigbridge-backend/pkg/enums"

var transitions = map[enums.EngagementStatus][]enums.EngagementStatus{
	enums.EngagementStatusPending: {
		enums.EngagementStatusInProgress,
		enums.EngagementStatusRejected,
	},
	enums.EngagementStatusInProgress: {
		enums.EngagementStatusCompleted,
		enums.EngagementStatusRejected,
	},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Same-status requests are handled by callers as no-ops and are not edges.
func CanTransition(from, to enums.EngagementStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// sourcesFor lists the states that may move to `to`.
func sourcesFor(to enums.EngagementStatus) []enums.EngagementStatus {
	var out []enums.EngagementStatus
	for from, targets := range transitions {
		for _, candidate := range targets {
			if candidate == to {
				out = append(out, from)
			}
		}
	}
	return out
}
