package realtime

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
)

func testAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	authorizer, err := NewAuthorizer(config.RealtimeConfig{
		AppKey:    "wl-key",
		AppSecret: "wl-secret",
	})
	require.NoError(t, err)
	return authorizer
}

func TestAuthorize_OwnChannelGrantVerifies(t *testing.T) {
	authorizer := testAuthorizer(t)
	userID := uuid.New()
	socketID := uuid.NewString()

	for _, channel := range []string{MessageChannel(userID), NotificationChannel(userID)} {
		grant, err := authorizer.Authorize(userID, socketID, channel)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(grant, "wl-key:"))
		assert.True(t, authorizer.Verify(socketID, channel, grant))
	}
}

func TestAuthorize_ForeignChannelForbidden(t *testing.T) {
	authorizer := testAuthorizer(t)
	owner := uuid.New()
	attacker := uuid.New()

	_, err := authorizer.Authorize(attacker, uuid.NewString(), NotificationChannel(owner))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestAuthorize_RejectsMissingIdentityAndBadInput(t *testing.T) {
	authorizer := testAuthorizer(t)
	userID := uuid.New()

	_, err := authorizer.Authorize(uuid.Nil, "socket", NotificationChannel(userID))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = authorizer.Authorize(userID, "", NotificationChannel(userID))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = authorizer.Authorize(userID, "socket", "not-a-channel")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestVerify_RejectsTamperedGrants(t *testing.T) {
	authorizer := testAuthorizer(t)
	userID := uuid.New()
	socketID := uuid.NewString()
	channel := NotificationChannel(userID)

	grant, err := authorizer.Authorize(userID, socketID, channel)
	require.NoError(t, err)

	// Grant bound to a different socket or channel must not verify.
	assert.False(t, authorizer.Verify(uuid.NewString(), channel, grant))
	assert.False(t, authorizer.Verify(socketID, MessageChannel(userID), grant))
	assert.False(t, authorizer.Verify(socketID, channel, grant+"x"))
	assert.False(t, authorizer.Verify(socketID, channel, ""))
}
