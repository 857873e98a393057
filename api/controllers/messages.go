package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mvaldezh/whisperlink-backend/api/responses"
	"github.com/mvaldezh/whisperlink-backend/api/validators"
	"github.com/mvaldezh/whisperlink-backend/internal/feedback"
	"github.com/mvaldezh/whisperlink-backend/internal/messages"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type sendMessageResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// PublicSendMessage accepts an anonymous message for the user behind the
// public share link. No authentication, no sender identity.
func PublicSendMessage(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messages service unavailable"))
			return
		}

		username := chi.URLParam(r, "username")
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "username required"))
			return
		}

		var body sendMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.Send(r.Context(), username, body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sendMessageResponse{
			ID:        message.ID.String(),
			CreatedAt: message.CreatedAt.Format(time.RFC3339),
		})
	}
}

type submitFeedbackRequest struct {
	Comment string          `json:"comment" validate:"max=5000"`
	Answers json.RawMessage `json:"answers"`
}

type submitFeedbackResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// PublicSubmitFeedback accepts an anonymous feedback submission for the owner
// of the public feedback page.
func PublicSubmitFeedback(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feedback service unavailable"))
			return
		}

		slug := chi.URLParam(r, "slug")
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "feedback slug required"))
			return
		}

		var body submitFeedbackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		submission, err := svc.Submit(r.Context(), slug, body.Comment, body.Answers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, submitFeedbackResponse{
			ID:        submission.ID.String(),
			CreatedAt: submission.CreatedAt.Format(time.RFC3339),
		})
	}
}
