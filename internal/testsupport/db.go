package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/database"
)

// Epoch is the default start time of fake clocks in tests.
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// MustOpenDB opens a migrated SQLite database in a temp dir and registers cleanup.
func MustOpenDB(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "regula.db"))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("database.Migrate: %v", err)
	}
	return db
}

func NewClock() *clock.Fake {
	return clock.NewFake(Epoch)
}
