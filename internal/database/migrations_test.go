package database

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsPromotesViewLimitFlags(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&pastes.Paste{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	maxViews := 2
	language := "  Python "
	now := time.Unix(1700000000, 0).UTC()
	seed := []pastes.Paste{
		{ID: "exhausted", Content: "a", CreatedAt: now, MaxViews: &maxViews, ViewCount: 2, Language: &language},
		{ID: "available", Content: "b", CreatedAt: now, MaxViews: &maxViews, ViewCount: 1},
	}
	if err := database.Create(&seed).Error; err != nil {
		testContext.Fatalf("failed to insert pastes: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var exhausted pastes.Paste
	if err := database.Where("id = ?", "exhausted").Take(&exhausted).Error; err != nil {
		testContext.Fatalf("failed to reload paste: %v", err)
	}
	if !exhausted.IsExpired {
		testContext.Fatalf("expected exhausted paste to be flagged")
	}
	if exhausted.Language == nil || *exhausted.Language != "python" {
		testContext.Fatalf("expected language to be normalized, got %v", exhausted.Language)
	}

	var available pastes.Paste
	if err := database.Where("id = ?", "available").Take(&available).Error; err != nil {
		testContext.Fatalf("failed to reload paste: %v", err)
	}
	if available.IsExpired {
		testContext.Fatalf("expected paste under its limit to stay live")
	}

	var records []migrationRecord
	if err := database.Find(&records).Error; err != nil {
		testContext.Fatalf("failed to list migration records: %v", err)
	}
	if len(records) != 2 {
		testContext.Fatalf("expected 2 migration records, got %d", len(records))
	}
	for _, record := range records {
		if record.AppliedAtSeconds == 0 {
			testContext.Fatalf("expected migration timestamp to be set for %s", record.Name)
		}
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected re-run to be a no-op: %v", err)
	}
}

func TestOpenSQLiteRunsSchemaAndMigrations(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "open.db")

	db, err := Open(Config{Driver: DriverSQLite, Path: databasePath}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := Close(db); err != nil {
			testContext.Fatalf("failed to close database: %v", err)
		}
	}()

	if !db.Migrator().HasTable(&pastes.Paste{}) {
		testContext.Fatalf("expected pastes table to exist")
	}
	var count int64
	if err := db.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 2 {
		testContext.Fatalf("expected 2 applied migrations, got %d", count)
	}
}

func TestOpenRejectsInvalidConfig(testContext *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown-driver", cfg: Config{Driver: "mysql"}},
		{name: "postgres-without-dsn", cfg: Config{Driver: DriverPostgres}},
		{name: "sqlite-without-path", cfg: Config{Driver: DriverSQLite}},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			if _, err := Open(testCase.cfg, nil); err == nil {
				testContext.Fatalf("expected configuration error")
			}
		})
	}
}
