package enums

// EngagementStatus maps to engagement_status_enum. Completed and rejected are
// terminal.
type EngagementStatus string

const (
	EngagementStatusPending    EngagementStatus = "pending"
	EngagementStatusInProgress EngagementStatus = "in-progress"
	EngagementStatusCompleted  EngagementStatus = "completed"
	EngagementStatusRejected   EngagementStatus = "rejected"
)

var engagementStatuses = []EngagementStatus{
	EngagementStatusPending,
	EngagementStatusInProgress,
	EngagementStatusCompleted,
	EngagementStatusRejected,
}

func (s EngagementStatus) IsValid() bool { return member(engagementStatuses, s) }

func (s EngagementStatus) IsTerminal() bool {
	return s == EngagementStatusCompleted || s == EngagementStatusRejected
}

// ParseEngagementStatus reads client input, ignoring case and padding.
func ParseEngagementStatus(value string) (EngagementStatus, error) {
	return parseLoose(engagementStatuses, "engagement status", value)
}
