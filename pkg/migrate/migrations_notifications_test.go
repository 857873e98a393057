package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvaldezh/whisperlink-backend/pkg/migrate"
)

func TestNotificationsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_notifications.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no notifications migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS notifications",
		"FOREIGN KEY (recipient_id) REFERENCES users(id) ON DELETE CASCADE",
		"CHECK (kind IN ('anonymous-message', 'anonymous-feedback'))",
		"deleted BOOLEAN NOT NULL DEFAULT FALSE",
		"WHERE deleted = FALSE",
		"DROP TABLE IF EXISTS notifications",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
