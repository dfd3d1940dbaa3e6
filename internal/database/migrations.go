package database

import (
	"errors"
	"time"

	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationPromoteViewLimitFlags = "2025-01-20_promote_view_limit_flags"
	migrationNormalizeLanguageTags = "2025-02-11_normalize_language_tags"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationPromoteViewLimitFlags, apply: promoteViewLimitFlags},
		{name: migrationNormalizeLanguageTags, apply: normalizeLanguageTags},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Rows written before view counting flagged the final view stay readable once
// more unless their cached flag is caught up with the derived state.
func promoteViewLimitFlags(db *gorm.DB) error {
	return db.Model(&pastes.Paste{}).
		Where("is_expired = ? AND max_views IS NOT NULL AND view_count >= max_views", false).
		Update("is_expired", true).Error
}

func normalizeLanguageTags(db *gorm.DB) error {
	if err := db.Model(&pastes.Paste{}).
		Where("language IS NOT NULL").
		Update("language", gorm.Expr("LOWER(TRIM(language))")).Error; err != nil {
		return err
	}
	return db.Model(&pastes.Paste{}).
		Where("language = ?", "").
		Update("language", nil).Error
}
