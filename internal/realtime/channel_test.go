package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNamesRoundTrip(t *testing.T) {
	userID := uuid.New()

	messages, err := ParseChannel(MessageChannel(userID))
	require.NoError(t, err)
	assert.Equal(t, userID, messages.Owner)
	assert.Equal(t, StreamMessages, messages.Stream)

	notifications, err := ParseChannel(NotificationChannel(userID))
	require.NoError(t, err)
	assert.Equal(t, userID, notifications.Owner)
	assert.Equal(t, StreamNotifications, notifications.Stream)
}

func TestParseChannelRejectsMalformedNames(t *testing.T) {
	cases := []string{
		"",
		"public-lobby",
		"private-user-",
		"private-user-not-a-uuid",
		"private-user-not-a-uuid-notifications",
		"presence-user-" + uuid.NewString(),
	}
	for _, name := range cases {
		if _, err := ParseChannel(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}
