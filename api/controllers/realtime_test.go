package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/api/middleware"
	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
)

func testAuthorizer(t *testing.T) *realtime.Authorizer {
	t.Helper()
	authorizer, err := realtime.NewAuthorizer(config.RealtimeConfig{
		AppKey:    "wl-key",
		AppSecret: "wl-secret",
	})
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}
	return authorizer
}

func TestRealtimeAuthIssuesGrantForOwnChannel(t *testing.T) {
	userID := uuid.New()
	authorizer := testAuthorizer(t)
	channel := realtime.NotificationChannel(userID)

	body := `{"socket_id":"socket-1","channel_name":"` + channel + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/realtime/auth", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RealtimeAuth(authorizer, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"auth":"wl-key:`) {
		t.Fatalf("expected signed grant, got %s", resp.Body.String())
	}
}

func TestRealtimeAuthDeniesForeignChannel(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	authorizer := testAuthorizer(t)
	channel := realtime.NotificationChannel(other)

	body := `{"socket_id":"socket-1","channel_name":"` + channel + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/realtime/auth", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RealtimeAuth(authorizer, testControllerLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRealtimeAuthRejectsMalformedChannel(t *testing.T) {
	userID := uuid.New()
	authorizer := testAuthorizer(t)

	body := `{"socket_id":"socket-1","channel_name":"presence-global"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/realtime/auth", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RealtimeAuth(authorizer, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRealtimeAuthRequiresBodyFields(t *testing.T) {
	authorizer := testAuthorizer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/realtime/auth", strings.NewReader(`{}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	RealtimeAuth(authorizer, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRealtimeAuthMissingUser(t *testing.T) {
	authorizer := testAuthorizer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/realtime/auth", strings.NewReader(`{"socket_id":"s","channel_name":"c"}`))
	resp := httptest.NewRecorder()
	RealtimeAuth(authorizer, testControllerLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
