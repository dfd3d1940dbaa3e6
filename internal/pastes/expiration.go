package pastes

import "time"

// ExpiryReason names why a paste is no longer served.
type ExpiryReason string

const (
	ReasonNone      ExpiryReason = ""
	ReasonTimeLimit ExpiryReason = "time_limit"
	ReasonViewLimit ExpiryReason = "view_limit"
	ReasonDeleted   ExpiryReason = "deleted"
)

// Message renders the reason for API consumers.
func (r ExpiryReason) Message() string {
	switch r {
	case ReasonTimeLimit:
		return "This paste has expired due to time limit"
	case ReasonViewLimit:
		return "This paste has expired due to view limit"
	case ReasonDeleted:
		return "This paste has been deleted"
	default:
		return ""
	}
}

// ExpirationState holds the four stored fields the evaluator reads.
type ExpirationState struct {
	IsExpired bool
	ExpiresAt *time.Time
	ViewCount int
	MaxViews  *int
}

// Verdict is the evaluator output.
type Verdict struct {
	Expired bool
	Reason  ExpiryReason
}

// Evaluate derives expiry from the stored fields at the supplied instant.
// The reason is recomputed from current values, so a flagged paste whose
// original cause no longer applies reports ReasonDeleted.
func Evaluate(state ExpirationState, now time.Time) Verdict {
	timeExpired := state.ExpiresAt != nil && now.After(*state.ExpiresAt)
	viewExpired := state.MaxViews != nil && state.ViewCount >= *state.MaxViews

	switch {
	case timeExpired:
		return Verdict{Expired: true, Reason: ReasonTimeLimit}
	case viewExpired:
		return Verdict{Expired: true, Reason: ReasonViewLimit}
	case state.IsExpired:
		return Verdict{Expired: true, Reason: ReasonDeleted}
	default:
		return Verdict{}
	}
}
