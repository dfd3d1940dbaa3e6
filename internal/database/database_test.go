package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpenPinsSQLiteRegardlessOfDriverCase(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "mixed.db")

	db, err := Open(Config{Driver: " SQLite ", Path: databasePath, MaxOpenConns: 8}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := Close(db); err != nil {
			testContext.Fatalf("failed to close database: %v", err)
		}
	}()

	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access pool: %v", err)
	}
	if maxOpen := sqlDB.Stats().MaxOpenConnections; maxOpen != 1 {
		testContext.Fatalf("expected sqlite pool pinned to 1 connection, got %d", maxOpen)
	}
}

func TestInitializeClosesHandleOnSchemaFailure(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "conflict.db")

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	// A view occupying the table name makes CREATE TABLE fail.
	if err := db.Exec("CREATE VIEW pastes AS SELECT 1 AS id").Error; err != nil {
		testContext.Fatalf("failed to seed conflicting view: %v", err)
	}

	if err := initialize(db, Config{Driver: DriverSQLite, Path: databasePath}, zap.NewNop()); err == nil {
		testContext.Fatalf("expected schema migration to fail")
	}

	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access pool: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		testContext.Fatalf("expected handle to be closed after failed initialization")
	}
}
