package realtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Event names pushed to subscribed sockets.
const (
	EventNewMessage      = "new-message"
	EventNewNotification = "new-notification"
)

const (
	channelPrefix       = "private-user-"
	notificationsSuffix = "-notifications"
)

// Stream distinguishes the two per-user channel variants.
type Stream string

const (
	StreamMessages      Stream = "messages"
	StreamNotifications Stream = "notifications"
)

// Channel is a parsed private channel name.
type Channel struct {
	Owner  uuid.UUID
	Stream Stream
}

// MessageChannel names the per-user message stream channel.
func MessageChannel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// NotificationChannel names the per-user notification stream channel.
func NotificationChannel(userID uuid.UUID) string {
	return channelPrefix + userID.String() + notificationsSuffix
}

// ParseChannel decodes a channel name into its owner and stream. Only the
// private-user grammar is accepted; anything else is rejected.
func ParseChannel(name string) (Channel, error) {
	trimmed := strings.TrimSpace(name)
	if !strings.HasPrefix(trimmed, channelPrefix) {
		return Channel{}, fmt.Errorf("unrecognized channel %q", name)
	}

	rest := strings.TrimPrefix(trimmed, channelPrefix)
	stream := StreamMessages
	if strings.HasSuffix(rest, notificationsSuffix) {
		rest = strings.TrimSuffix(rest, notificationsSuffix)
		stream = StreamNotifications
	}

	owner, err := uuid.Parse(rest)
	if err != nil {
		return Channel{}, fmt.Errorf("invalid channel owner in %q: %w", name, err)
	}

	return Channel{Owner: owner, Stream: stream}, nil
}
