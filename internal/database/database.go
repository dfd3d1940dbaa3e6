package database

import (
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes the database backend.
type Config struct {
	Driver       string
	DSN          string
	Path         string
	MaxOpenConns int
}

// Open establishes the configured connection and performs schema migrations.
// The caller owns the returned handle and must close it through Close.
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	cfg.Driver = normalizeDriver(cfg.Driver)
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := initialize(db, cfg, logger); err != nil {
		return nil, err
	}

	return db, nil
}

// initialize tunes the pool and brings the schema up to date. The handle is
// closed when any step fails.
func initialize(db *gorm.DB, cfg Config, logger *zap.Logger) (err error) {
	defer func() {
		if err != nil {
			_ = Close(db)
		}
	}()

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	switch {
	case normalizeDriver(cfg.Driver) == DriverSQLite:
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(&pastes.Paste{}, &migrationRecord{}); err != nil {
		return err
	}

	if err := applyMigrations(db, logger); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", normalizeDriver(cfg.Driver)))
	}
	return nil
}

// Close releases the pooled connections behind the handle.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func normalizeDriver(driver string) string {
	return strings.ToLower(strings.TrimSpace(driver))
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch normalizeDriver(cfg.Driver) {
	case DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("database dsn is required for postgres")
		}
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("database path is required for sqlite")
		}
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
