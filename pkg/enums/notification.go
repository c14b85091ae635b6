package enums

// NotificationType maps to notification_type. Each value corresponds to the
// engagement event that produced the notification.
type NotificationType string

const (
	NotificationTypeEngagementApplied NotificationType = "engagement_applied"
	NotificationTypeEngagementUpdated NotificationType = "engagement_updated"
	NotificationTypeSettlement        NotificationType = "settlement"
	NotificationTypeDiscussion        NotificationType = "discussion"
)

var notificationTypes = []NotificationType{
	NotificationTypeEngagementApplied,
	NotificationTypeEngagementUpdated,
	NotificationTypeSettlement,
	NotificationTypeDiscussion,
}

func (n NotificationType) IsValid() bool { return member(notificationTypes, n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return parseStrict(notificationTypes, "notification type", value)
}
