package messages

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/internal/users"
	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	"github.com/mvaldezh/whisperlink-backend/pkg/enums"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

type fakeUsersRepo struct {
	byUsername map[string]*models.User
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, users.ErrNotFound
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := f.byUsername[username]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsersRepo) GetByFeedbackSlug(ctx context.Context, slug string) (*models.User, error) {
	return nil, users.ErrNotFound
}

type fakeMessagesRepo struct {
	createFn func(ctx context.Context, message *models.Message) error
	created  []*models.Message
}

func (f *fakeMessagesRepo) Create(ctx context.Context, message *models.Message) error {
	if f.createFn != nil {
		return f.createFn(ctx, message)
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	f.created = append(f.created, message)
	return nil
}

type publishCall struct {
	recipientID uuid.UUID
	kind        enums.NotificationKind
	text        string
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationKind, text string, redirectPath *string) (*models.Notification, error) {
	f.calls = append(f.calls, publishCall{recipientID: recipientID, kind: kind, text: text})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: uuid.New(), RecipientID: recipientID, Kind: kind, Text: text}, nil
}

type fakePusher struct {
	channels []string
	events   []string
	err      error
}

func (f *fakePusher) Trigger(ctx context.Context, channel, event string, payload any) error {
	f.channels = append(f.channels, channel)
	f.events = append(f.events, event)
	return f.err
}

func newTestService(t *testing.T, usersRepo users.Repository, repo Repository, publisher *fakePublisher, push *fakePusher) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(usersRepo, repo, publisher, push, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestService_SendPersistsPushesAndPublishesOnce(t *testing.T) {
	recipient := &models.User{ID: uuid.New(), Username: "maria", AcceptingMessages: true}
	usersRepo := &fakeUsersRepo{byUsername: map[string]*models.User{"maria": recipient}}
	repo := &fakeMessagesRepo{}
	publisher := &fakePublisher{}
	push := &fakePusher{}

	svc := newTestService(t, usersRepo, repo, publisher, push)
	message, err := svc.Send(context.Background(), "maria", "hello there")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if message.RecipientID != recipient.ID {
		t.Fatalf("unexpected recipient %s", message.RecipientID)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one persisted message, got %d", len(repo.created))
	}

	if len(push.channels) != 1 || push.channels[0] != "private-user-"+recipient.ID.String() {
		t.Fatalf("unexpected push channels %v", push.channels)
	}
	if push.events[0] != "new-message" {
		t.Fatalf("unexpected push event %q", push.events[0])
	}

	if len(publisher.calls) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(publisher.calls))
	}
	call := publisher.calls[0]
	if call.recipientID != recipient.ID || call.kind != enums.NotificationKindAnonymousMessage {
		t.Fatalf("unexpected publish call %+v", call)
	}
}

func TestService_SendUnknownUsername(t *testing.T) {
	svc := newTestService(t, &fakeUsersRepo{}, &fakeMessagesRepo{}, &fakePublisher{}, &fakePusher{})
	_, err := svc.Send(context.Background(), "ghost", "hello")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
}

func TestService_SendNotAcceptingMessages(t *testing.T) {
	recipient := &models.User{ID: uuid.New(), Username: "quiet", AcceptingMessages: false}
	usersRepo := &fakeUsersRepo{byUsername: map[string]*models.User{"quiet": recipient}}
	publisher := &fakePublisher{}

	svc := newTestService(t, usersRepo, &fakeMessagesRepo{}, publisher, &fakePusher{})
	_, err := svc.Send(context.Background(), "quiet", "hello")
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", code)
	}
	if len(publisher.calls) != 0 {
		t.Fatal("nothing must be published for a refused message")
	}
}

func TestService_SendValidatesContent(t *testing.T) {
	recipient := &models.User{ID: uuid.New(), Username: "maria", AcceptingMessages: true}
	usersRepo := &fakeUsersRepo{byUsername: map[string]*models.User{"maria": recipient}}
	svc := newTestService(t, usersRepo, &fakeMessagesRepo{}, &fakePublisher{}, &fakePusher{})

	if _, err := svc.Send(context.Background(), "maria", "   "); err == nil {
		t.Fatal("expected validation error for blank content")
	}
	if _, err := svc.Send(context.Background(), "maria", strings.Repeat("x", maxContentLength+1)); err == nil {
		t.Fatal("expected validation error for oversized content")
	}
}

func TestService_SendSurvivesPushAndPublishFailures(t *testing.T) {
	recipient := &models.User{ID: uuid.New(), Username: "maria", AcceptingMessages: true}
	usersRepo := &fakeUsersRepo{byUsername: map[string]*models.User{"maria": recipient}}
	publisher := &fakePublisher{err: errors.New("store down")}
	push := &fakePusher{err: errors.New("transport down")}

	svc := newTestService(t, usersRepo, &fakeMessagesRepo{}, publisher, push)
	message, err := svc.Send(context.Background(), "maria", "hello")
	if err != nil {
		t.Fatalf("send must survive delivery failures: %v", err)
	}
	if message == nil {
		t.Fatal("expected persisted message back")
	}
}

func TestService_SendPersistFailure(t *testing.T) {
	recipient := &models.User{ID: uuid.New(), Username: "maria", AcceptingMessages: true}
	usersRepo := &fakeUsersRepo{byUsername: map[string]*models.User{"maria": recipient}}
	repo := &fakeMessagesRepo{createFn: func(ctx context.Context, message *models.Message) error {
		return errors.New("db down")
	}}
	publisher := &fakePublisher{}

	svc := newTestService(t, usersRepo, repo, publisher, &fakePusher{})
	_, err := svc.Send(context.Background(), "maria", "hello")
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if len(publisher.calls) != 0 {
		t.Fatal("publish must not fire when persistence fails")
	}
}
