package enums

// OutboxAggregateType maps to aggregate_type. The aggregate id doubles as the
// Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateEngagement      OutboxAggregateType = "engagement"
	AggregateDiscussionEntry OutboxAggregateType = "discussion_entry"
)

var aggregateTypes = []OutboxAggregateType{AggregateEngagement, AggregateDiscussionEntry}

func (a OutboxAggregateType) IsValid() bool { return member(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseStrict(aggregateTypes, "aggregate type", value)
}

// OutboxEventType maps to event_type.
type OutboxEventType string

const (
	EventEngagementApplied       OutboxEventType = "engagement_applied"
	EventEngagementStatusChanged OutboxEventType = "engagement_status_changed"
	EventEngagementSettled       OutboxEventType = "engagement_settled"
	EventDiscussionPosted        OutboxEventType = "discussion_posted"
)

var outboxEventTypes = []OutboxEventType{
	EventEngagementApplied,
	EventEngagementStatusChanged,
	EventEngagementSettled,
	EventDiscussionPosted,
}

func (e OutboxEventType) IsValid() bool { return member(outboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseStrict(outboxEventTypes, "event type", value)
}

// OutboxDLQErrorReason records why a row was moved to outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
