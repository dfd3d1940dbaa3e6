package pastes

import "time"

const (
	// MaxContentBytes bounds paste content measured in encoded bytes.
	MaxContentBytes = 500 * 1024
	// MaxExpiresInMinutes bounds the time-based expiration window (one year).
	MaxExpiresInMinutes = 525600
	// MaxViewsLimit bounds the view ceiling accepted at creation.
	MaxViewsLimit = 1000000
	// MaxIDLength bounds identifiers accepted on lookup paths.
	MaxIDLength = 20
	// DefaultRetentionDays is how long flagged pastes survive before purge.
	DefaultRetentionDays = 7
	// TopLanguagesLimit caps the language breakdown reported by Stats.
	TopLanguagesLimit = 10
)

// Paste models the persisted snippet and its expiration bookkeeping.
type Paste struct {
	ID        string     `gorm:"column:id;primaryKey;size:20;not null"`
	Content   string     `gorm:"column:content;type:text;not null"`
	Language  *string    `gorm:"column:language;index:idx_pastes_language"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;index:idx_pastes_created_at"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index:idx_pastes_expires_at"`
	MaxViews  *int       `gorm:"column:max_views"`
	ViewCount int        `gorm:"column:view_count;not null;default:0"`
	IsExpired bool       `gorm:"column:is_expired;not null;default:false;index:idx_pastes_is_expired"`
}

// TableName provides the explicit table binding for GORM.
func (Paste) TableName() string {
	return "pastes"
}

// RemainingViews reports how many successful fetches are left, or nil when unlimited.
func (p Paste) RemainingViews() *int {
	if p.MaxViews == nil {
		return nil
	}
	remaining := *p.MaxViews - p.ViewCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// ExpirationState is the subset of paste fields that decides expiry.
func (p Paste) ExpirationState() ExpirationState {
	return ExpirationState{
		IsExpired: p.IsExpired,
		ExpiresAt: p.ExpiresAt,
		ViewCount: p.ViewCount,
		MaxViews:  p.MaxViews,
	}
}

// CreateInput carries validated creation fields.
type CreateInput struct {
	Content   string
	Language  *string
	ExpiresIn int
	MaxViews  *int
}

// SweepResult reports how many rows a sweep flagged per cause.
type SweepResult struct {
	ExpiredByTime  int64 `json:"expiredByTime"`
	ExpiredByViews int64 `json:"expiredByViews"`
	TotalExpired   int64 `json:"totalExpired"`
}

// PurgeResult reports a permanent deletion pass.
type PurgeResult struct {
	Deleted       int64     `json:"deletedCount"`
	RetentionDays int       `json:"retentionDays"`
	Cutoff        time.Time `json:"cutoff"`
}

// LanguageCount is one row of the language breakdown.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// Stats aggregates the paste table.
type Stats struct {
	Total          int64           `json:"total"`
	Active         int64           `json:"active"`
	Expired        int64           `json:"expired"`
	TotalViews     int64           `json:"totalViews"`
	WithTimeExpiry int64           `json:"withTimeExpiry"`
	WithViewLimit  int64           `json:"withViewLimit"`
	TopLanguages   []LanguageCount `json:"topLanguages"`
}
