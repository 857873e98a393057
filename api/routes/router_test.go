package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

type stubMessagesService struct {
	calls int
}

func (s *stubMessagesService) Send(ctx context.Context, username, content string) (*models.Message, error) {
	s.calls++
	return &models.Message{ID: uuid.New()}, nil
}

func testRouterDeps() Deps {
	return Deps{
		Config: &config.Config{
			App: config.AppConfig{Env: "dev", Port: "8080"},
			JWT: config.JWTConfig{Secret: "secret", Issuer: "test", ExpirationMinutes: 15},
		},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testRouterDeps())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resp.Header().Get("X-WhisperLink-Env") != "dev" {
		t.Fatal("expected environment header")
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := NewRouter(testRouterDeps())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodPatch, "/api/v1/notifications"},
		{http.MethodDelete, "/api/v1/notifications"},
		{http.MethodPut, "/api/v1/notifications/clear"},
		{http.MethodPost, "/api/v1/realtime/auth"},
	}
	for _, route := range paths {
		req := httptest.NewRequest(route.method, route.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", route.method, route.path, resp.Code)
		}
	}
}

func TestRouterPublicMessageRouteIsOpen(t *testing.T) {
	deps := testRouterDeps()
	svc := &stubMessagesService{}
	deps.Messages = svc

	router := NewRouter(deps)
	req := httptest.NewRequest(http.MethodPost, "/api/public/u/maria/messages", strings.NewReader(`{"content":"hi"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service call, got %d", svc.calls)
	}
}

func TestRouterRequestIDHeader(t *testing.T) {
	router := NewRouter(testRouterDeps())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}
