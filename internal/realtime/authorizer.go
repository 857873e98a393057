package realtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
)

// Authorizer issues and verifies signed grants for private channels. A grant
// binds one socket to one channel; it carries no server-side state.
type Authorizer struct {
	appKey string
	secret []byte
}

// NewAuthorizer validates the signing configuration.
func NewAuthorizer(cfg config.RealtimeConfig) (*Authorizer, error) {
	if strings.TrimSpace(cfg.AppKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime app key required")
	}
	if strings.TrimSpace(cfg.AppSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime app secret required")
	}
	return &Authorizer{
		appKey: cfg.AppKey,
		secret: []byte(cfg.AppSecret),
	}, nil
}

// Authorize checks that the identity owns the requested channel and returns
// the signed grant string. Channels of other users are never granted, whatever
// the caller's session state.
func (a *Authorizer) Authorize(userID uuid.UUID, socketID, channelName string) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated identity required")
	}
	if strings.TrimSpace(socketID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "socket id required")
	}

	channel, err := ParseChannel(channelName)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel name")
	}
	if channel.Owner != userID {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "channel belongs to another user")
	}

	return a.appKey + ":" + a.sign(socketID, channelName), nil
}

// Verify reports whether the auth string is a valid grant for this socket and
// channel pair.
func (a *Authorizer) Verify(socketID, channelName, auth string) bool {
	expected := a.appKey + ":" + a.sign(socketID, channelName)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(auth)) == 1
}

func (a *Authorizer) sign(socketID, channelName string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(socketID + ":" + channelName))
	return hex.EncodeToString(mac.Sum(nil))
}
