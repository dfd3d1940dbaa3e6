package pastes

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCreateAttempts = 3

var noOpLogger = zap.NewNop()

// ServiceConfig describes the dependencies of the paste store.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// IDProvider issues identifiers for new pastes.
type IDProvider interface {
	NewID() (string, error)
}

// Service owns paste persistence and the expiration lifecycle.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Now exposes the service clock so callers share one notion of time.
func (s *Service) Now() time.Time {
	return s.clock().UTC()
}

// Create inserts a new paste, retrying when a generated identifier collides.
func (s *Service) Create(ctx context.Context, input CreateInput) (Paste, error) {
	if s.db == nil {
		s.logError(opCreate, "missing_database", errMissingDatabase)
		return Paste{}, newServiceError(opCreate, "missing_database", errMissingDatabase)
	}

	now := s.Now()
	var expiresAt *time.Time
	if input.ExpiresIn > 0 {
		expiry := now.Add(time.Duration(input.ExpiresIn) * time.Minute)
		expiresAt = &expiry
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		id, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err)
			return Paste{}, newServiceError(opCreate, "id_generation_failed", err)
		}

		paste := Paste{
			ID:        id,
			Content:   input.Content,
			Language:  input.Language,
			CreatedAt: now,
			ExpiresAt: expiresAt,
			MaxViews:  input.MaxViews,
			ViewCount: 0,
			IsExpired: false,
		}
		err = s.db.WithContext(ctx).Create(&paste).Error
		if err == nil {
			return paste, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.loggerOrDefault().Warn("paste id collision",
				zap.String("paste_id", id),
				zap.Int("attempt", attempt))
			continue
		}
		s.logError(opCreate, "insert_failed", err, zap.String("paste_id", id))
		return Paste{}, newServiceError(opCreate, "insert_failed", err)
	}

	s.logError(opCreate, "id_conflict", ErrIDConflict)
	return Paste{}, newServiceError(opCreate, "id_conflict", ErrIDConflict)
}

// FetchAndView returns the paste and counts one view, or reports why it cannot.
func (s *Service) FetchAndView(ctx context.Context, id string) (Paste, error) {
	return s.view(ctx, id)
}

// FetchRaw has the same view semantics as FetchAndView but yields only the body.
func (s *Service) FetchRaw(ctx context.Context, id string) (string, error) {
	paste, err := s.view(ctx, id)
	if err != nil {
		return "", err
	}
	return paste.Content, nil
}

func (s *Service) view(ctx context.Context, id string) (Paste, error) {
	if s.db == nil {
		s.logError(opFetch, "missing_database", errMissingDatabase)
		return Paste{}, newServiceError(opFetch, "missing_database", errMissingDatabase)
	}

	paste, err := s.load(ctx, id)
	if err != nil {
		return Paste{}, err
	}

	now := s.Now()
	if verdict := Evaluate(paste.ExpirationState(), now); verdict.Expired {
		return Paste{}, s.rejectExpired(ctx, paste, verdict)
	}

	// Counting and flag promotion happen in one statement; the guard clauses
	// repeat the evaluator so two readers cannot both take the last view.
	result := s.db.WithContext(ctx).
		Model(&Paste{}).
		Where("id = ? AND is_expired = ?", id, false).
		Where("(expires_at IS NULL OR expires_at >= ?)", now).
		Where("(max_views IS NULL OR view_count < max_views)").
		Updates(map[string]interface{}{
			"view_count": gorm.Expr("view_count + 1"),
			"is_expired": gorm.Expr("CASE WHEN max_views IS NOT NULL AND view_count + 1 >= max_views THEN ? ELSE is_expired END", true),
		})
	if result.Error != nil {
		s.logError(opFetch, "increment_failed", result.Error, zap.String("paste_id", id))
		return Paste{}, newServiceError(opFetch, "increment_failed", result.Error)
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return Paste{}, err
	}
	if result.RowsAffected == 0 {
		// Lost the race for the final view or crossed the expiry instant.
		verdict := Evaluate(current.ExpirationState(), now)
		if !verdict.Expired {
			verdict = Verdict{Expired: true, Reason: ReasonViewLimit}
		}
		return Paste{}, s.rejectExpired(ctx, current, verdict)
	}
	return current, nil
}

func (s *Service) load(ctx context.Context, id string) (Paste, error) {
	var paste Paste
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&paste).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Paste{}, ErrPasteNotFound
	}
	if err != nil {
		s.logError(opFetch, "query_failed", err, zap.String("paste_id", id))
		return Paste{}, newServiceError(opFetch, "query_failed", err)
	}
	return paste, nil
}

func (s *Service) rejectExpired(ctx context.Context, paste Paste, verdict Verdict) error {
	if !paste.IsExpired {
		if err := s.flagExpired(ctx, paste.ID); err != nil {
			s.logError(opFetch, "flag_expired_failed", err, zap.String("paste_id", paste.ID))
			return newServiceError(opFetch, "flag_expired_failed", err)
		}
	}
	return &ExpiredError{ID: paste.ID, Reason: verdict.Reason}
}

func (s *Service) flagExpired(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&Paste{}).
		Where("id = ? AND is_expired = ?", id, false).
		Update("is_expired", true).Error
}

// MarkExpired flags a paste as expired regardless of its limits.
func (s *Service) MarkExpired(ctx context.Context, id string) error {
	if s.db == nil {
		s.logError(opMarkExpired, "missing_database", errMissingDatabase)
		return newServiceError(opMarkExpired, "missing_database", errMissingDatabase)
	}
	result := s.db.WithContext(ctx).
		Model(&Paste{}).
		Where("id = ?", id).
		Update("is_expired", true)
	if result.Error != nil {
		s.logError(opMarkExpired, "update_failed", result.Error, zap.String("paste_id", id))
		return newServiceError(opMarkExpired, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPasteNotFound
	}
	return nil
}

// SweepExpired flags every paste whose time or view limit has been reached.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	if s.db == nil {
		s.logError(opSweepExpired, "missing_database", errMissingDatabase)
		return SweepResult{}, newServiceError(opSweepExpired, "missing_database", errMissingDatabase)
	}

	var result SweepResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byTime := tx.Model(&Paste{}).
			Where("is_expired = ? AND expires_at IS NOT NULL AND expires_at <= ?", false, now.UTC()).
			Update("is_expired", true)
		if byTime.Error != nil {
			s.logError(opSweepExpired, "time_update_failed", byTime.Error)
			return newServiceError(opSweepExpired, "time_update_failed", byTime.Error)
		}

		byViews := tx.Model(&Paste{}).
			Where("is_expired = ? AND max_views IS NOT NULL AND view_count >= max_views", false).
			Update("is_expired", true)
		if byViews.Error != nil {
			s.logError(opSweepExpired, "view_update_failed", byViews.Error)
			return newServiceError(opSweepExpired, "view_update_failed", byViews.Error)
		}

		result.ExpiredByTime = byTime.RowsAffected
		result.ExpiredByViews = byViews.RowsAffected
		result.TotalExpired = byTime.RowsAffected + byViews.RowsAffected
		return nil
	})
	if txErr != nil {
		return SweepResult{}, txErr
	}

	s.loggerOrDefault().Info("expired pastes swept",
		zap.Int64("expired_by_time", result.ExpiredByTime),
		zap.Int64("expired_by_views", result.ExpiredByViews))
	return result, nil
}

// Purge permanently deletes flagged pastes created before the retention cutoff.
func (s *Service) Purge(ctx context.Context, retentionDays int) (PurgeResult, error) {
	if s.db == nil {
		s.logError(opPurge, "missing_database", errMissingDatabase)
		return PurgeResult{}, newServiceError(opPurge, "missing_database", errMissingDatabase)
	}
	if retentionDays < 0 {
		return PurgeResult{}, ErrInvalidRetention
	}

	cutoff := s.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).
		Where("is_expired = ? AND created_at <= ?", true, cutoff).
		Delete(&Paste{})
	if result.Error != nil {
		s.logError(opPurge, "delete_failed", result.Error)
		return PurgeResult{}, newServiceError(opPurge, "delete_failed", result.Error)
	}

	s.loggerOrDefault().Info("expired pastes purged",
		zap.Int64("deleted", result.RowsAffected),
		zap.Int("retention_days", retentionDays))
	return PurgeResult{
		Deleted:       result.RowsAffected,
		RetentionDays: retentionDays,
		Cutoff:        cutoff,
	}, nil
}

// Stats aggregates counts, views and the most used languages.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.db == nil {
		s.logError(opStats, "missing_database", errMissingDatabase)
		return Stats{}, newServiceError(opStats, "missing_database", errMissingDatabase)
	}

	db := s.db.WithContext(ctx)
	var aggregate struct {
		Total          int64
		Expired        int64
		TotalViews     int64
		WithTimeExpiry int64
		WithViewLimit  int64
	}
	err := db.Model(&Paste{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_expired THEN 1 ELSE 0 END), 0) AS expired,
			COALESCE(SUM(view_count), 0) AS total_views,
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS with_time_expiry,
			COALESCE(SUM(CASE WHEN max_views IS NOT NULL THEN 1 ELSE 0 END), 0) AS with_view_limit`).
		Scan(&aggregate).Error
	if err != nil {
		s.logError(opStats, "aggregate_failed", err)
		return Stats{}, newServiceError(opStats, "aggregate_failed", err)
	}

	languages := make([]LanguageCount, 0, TopLanguagesLimit)
	err = db.Model(&Paste{}).
		Select("language, COUNT(*) AS count").
		Where("language IS NOT NULL").
		Group("language").
		Order("count DESC, language ASC").
		Limit(TopLanguagesLimit).
		Scan(&languages).Error
	if err != nil {
		s.logError(opStats, "languages_failed", err)
		return Stats{}, newServiceError(opStats, "languages_failed", err)
	}

	return Stats{
		Total:          aggregate.Total,
		Active:         aggregate.Total - aggregate.Expired,
		Expired:        aggregate.Expired,
		TotalViews:     aggregate.TotalViews,
		WithTimeExpiry: aggregate.WithTimeExpiry,
		WithViewLimit:  aggregate.WithViewLimit,
		TopLanguages:   languages,
	}, nil
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return newServiceError(opPing, "missing_database", errMissingDatabase)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return newServiceError(opPing, "handle_failed", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return newServiceError(opPing, "ping_failed", err)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("pastes service error", attrs...)
}
