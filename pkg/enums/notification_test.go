package enums

import "testing"

func TestNotificationKindIsValid(t *testing.T) {
	if !NotificationKindAnonymousMessage.IsValid() {
		t.Fatal("anonymous-message must be valid")
	}
	if !NotificationKindAnonymousFeedback.IsValid() {
		t.Fatal("anonymous-feedback must be valid")
	}
	if NotificationKind("direct-message").IsValid() {
		t.Fatal("unknown kind must be invalid")
	}
}

func TestParseNotificationKind(t *testing.T) {
	kind, err := ParseNotificationKind("anonymous-feedback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != NotificationKindAnonymousFeedback {
		t.Fatalf("unexpected kind %q", kind)
	}

	if _, err := ParseNotificationKind(""); err == nil {
		t.Fatal("expected error for empty kind")
	}
}
