package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPlaced    NotificationType = "order_placed"
	NotificationTypeOrderAccepted  NotificationType = "order_accepted"
	NotificationTypeOrderReady     NotificationType = "order_ready"
	NotificationTypeOrderAssigned  NotificationType = "order_assigned"
	NotificationTypeOrderPickedUp  NotificationType = "order_picked_up"
	NotificationTypeOrderInTransit NotificationType = "order_in_transit"
	NotificationTypeOrderDelivered NotificationType = "order_delivered"
	NotificationTypeOrderCancelled NotificationType = "order_cancelled"
	NotificationTypeStockDepleted  NotificationType = "stock_depleted"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeOrderAccepted,
	NotificationTypeOrderReady,
	NotificationTypeOrderAssigned,
	NotificationTypeOrderPickedUp,
	NotificationTypeOrderInTransit,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCancelled,
	NotificationTypeStockDepleted,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationStatus tracks delivery of a stored notification.
type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusUnread,
	NotificationStatusRead,
}

// IsValid checks whether the given status matches the canonical enum.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationStatus converts raw strings into NotificationStatus.
func ParseNotificationStatus(value string) (NotificationStatus, error) {
	for _, candidate := range validNotificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification status %q", value)
}
