package controllers

import (
	"net/http"

	"github.com/mvaldezh/whisperlink-backend/api/responses"
	"github.com/mvaldezh/whisperlink-backend/api/validators"
	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

type realtimeAuthRequest struct {
	SocketID    string `json:"socket_id" validate:"required"`
	ChannelName string `json:"channel_name" validate:"required"`
}

type realtimeAuthResponse struct {
	Auth string `json:"auth"`
}

// RealtimeAuth signs a channel grant for the authenticated user's own channels.
func RealtimeAuth(authorizer *realtime.Authorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authorizer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime authorizer unavailable"))
			return
		}

		userID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body realtimeAuthRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := authorizer.Authorize(userID, body.SocketID, body.ChannelName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithChannel(r.Context(), body.ChannelName)
			logg.Info(ctx, "channel grant issued")
		}
		responses.WriteSuccess(w, realtimeAuthResponse{Auth: grant})
	}
}

// RealtimeWS hands the request to the websocket hub. Authentication happens
// inside the hub because browsers cannot set headers on websocket upgrades.
func RealtimeWS(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime hub unavailable"))
			return
		}
		hub.HandleConnection(w, r)
	}
}
