package migrations

import (
	"context"
	"testing"

	"github.com/nerrad567/robot-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/database"
)

func TestMigrationsApplyAndRollBack(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.InMemory, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	migrations, err := database.LoadMigrations(FS)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("found %d migrations, want 3", len(migrations))
	}
	for _, m := range migrations {
		if m.DownSQL == "" {
			t.Errorf("migration %s has no down SQL", m.Version)
		}
	}

	if err := db.Migrate(ctx, FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"sequences", "schedules", "audit_logs"} {
		var name string
		if err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	for range migrations {
		if err := db.MigrateDown(ctx, FS); err != nil {
			t.Fatalf("MigrateDown() error = %v", err)
		}
	}

	_, pending, err := db.MigrationStatus(ctx, FS)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != len(migrations) {
		t.Errorf("pending = %d after full rollback, want %d", len(pending), len(migrations))
	}
}
