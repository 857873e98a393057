package redis

import (
	"testing"

	"github.com/mvaldezh/whisperlink-backend/pkg/config"
)

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:secret@localhost:6380/2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.Password != "secret" {
		t.Fatalf("unexpected password %q", opts.Password)
	}
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}

	if got := c.AccessSessionKey("abc"); got != "wl:session:access:abc" {
		t.Fatalf("unexpected session key %q", got)
	}
	if got := c.LockKey("cron-worker"); got != "wl:lock:cron-worker" {
		t.Fatalf("unexpected lock key %q", got)
	}
	if got := c.RealtimeChannelKey("private-user-1-notifications"); got != "wl:rt:private-user-1-notifications" {
		t.Fatalf("unexpected realtime key %q", got)
	}
}
