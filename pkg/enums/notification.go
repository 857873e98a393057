package enums

import "fmt"

// NotificationKind tags the closed set of events that can notify a recipient.
type NotificationKind string

const (
	NotificationKindAnonymousMessage  NotificationKind = "anonymous-message"
	NotificationKindAnonymousFeedback NotificationKind = "anonymous-feedback"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindAnonymousMessage,
	NotificationKindAnonymousFeedback,
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
