package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/api/middleware"
	"github.com/mvaldezh/whisperlink-backend/internal/notifications"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

type testNotificationsService struct {
	listFn       func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	markViewedFn func(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	softDeleteFn func(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	clearAllFn   func(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkViewed(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if s.markViewedFn != nil {
		return s.markViewedFn(ctx, recipientID, ids)
	}
	return 0, nil
}

func (s *testNotificationsService) SoftDelete(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if s.softDeleteFn != nil {
		return s.softDeleteFn(ctx, recipientID, ids)
	}
	return 0, nil
}

func (s *testNotificationsService) ClearAll(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if s.clearAllFn != nil {
		return s.clearAllFn(ctx, recipientID)
	}
	return 0, nil
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestListNotificationsPassesPagination(t *testing.T) {
	userID := uuid.New()
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=10&cursor=abc", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	ListNotifications(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.RecipientID != userID {
		t.Fatalf("unexpected recipient %s", got.RecipientID)
	}
	if got.Limit != 10 || got.Cursor != "abc" {
		t.Fatalf("pagination not forwarded: %+v", got)
	}
}

func TestListNotificationsMissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=zero", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationsViewedSuccess(t *testing.T) {
	userID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	var gotIDs []uuid.UUID
	svc := &testNotificationsService{
		markViewedFn: func(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
			if recipientID != userID {
				t.Fatalf("unexpected recipient %s", recipientID)
			}
			gotIDs = ids
			return int64(len(ids)), nil
		},
	}

	body := `{"ids":["` + first.String() + `","` + second.String() + `"]}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	MarkNotificationsViewed(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if len(gotIDs) != 2 || gotIDs[0] != first || gotIDs[1] != second {
		t.Fatalf("ids not forwarded: %v", gotIDs)
	}

	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["updated"] != 2 {
		t.Fatalf("expected updated=2 got %d", envelope.Data["updated"])
	}
}

func TestMarkNotificationsViewedRejectsEmptyIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications", strings.NewReader(`{"ids":[]}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	MarkNotificationsViewed(&testNotificationsService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationsViewedRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications", strings.NewReader(`{"ids":["nope"]}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	MarkNotificationsViewed(&testNotificationsService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeleteNotificationsSuccess(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()
	svc := &testNotificationsService{
		softDeleteFn: func(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
			return 1, nil
		},
	}

	body := `{"ids":["` + id.String() + `"]}`
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	DeleteNotifications(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["deleted"] != 1 {
		t.Fatalf("expected deleted=1 got %d", envelope.Data["deleted"])
	}
}

func TestClearNotificationsSuccess(t *testing.T) {
	userID := uuid.New()
	called := false
	svc := &testNotificationsService{
		clearAllFn: func(ctx context.Context, recipientID uuid.UUID) (int64, error) {
			called = true
			if recipientID != userID {
				t.Fatalf("unexpected recipient %s", recipientID)
			}
			return 7, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/clear", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	ClearNotifications(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["cleared"] != 7 {
		t.Fatalf("expected cleared=7 got %d", envelope.Data["cleared"])
	}
}
