package migrations

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

func TestRunMigrationsReportsNoChange(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	if err := RunMigrations(db, ".", logger); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !strings.Contains(buf.String(), "applied successfully") {
		t.Errorf("first run did not report applied migrations: %s", buf.String())
	}

	buf.Reset()
	if err := RunMigrations(db, ".", logger); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(buf.String(), "already up to date") {
		t.Errorf("no-change run did not report up to date: %s", buf.String())
	}
	if strings.Contains(buf.String(), "applied successfully") {
		t.Errorf("no-change run reported applied migrations: %s", buf.String())
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}
}
