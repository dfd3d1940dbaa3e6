package pastes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPasteNotFound indicates no paste exists for the identifier.
	ErrPasteNotFound = errors.New("pastes: paste not found")
	// ErrPasteExpired indicates the paste exists but is no longer served.
	ErrPasteExpired = errors.New("pastes: paste expired")
	// ErrIDConflict indicates identifier generation kept colliding with stored rows.
	ErrIDConflict = errors.New("pastes: identifier conflict")
	// ErrInvalidRetention indicates a negative purge retention window.
	ErrInvalidRetention = errors.New("pastes: invalid retention days")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

// ExpiredError carries the derived reason a paste was refused.
type ExpiredError struct {
	ID     string
	Reason ExpiryReason
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrPasteExpired, e.ID, e.Reason)
}

// Is lets errors.Is match ErrPasteExpired.
func (e *ExpiredError) Is(target error) bool {
	return target == ErrPasteExpired
}

// FieldError describes one failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failing field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ServiceError wraps storage failures with a dotted operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "pastes.service.new"
	opCreate       = "pastes.create"
	opFetch        = "pastes.fetch"
	opMarkExpired  = "pastes.mark_expired"
	opSweepExpired = "pastes.sweep_expired"
	opPurge        = "pastes.purge"
	opStats        = "pastes.stats"
	opPing         = "pastes.ping"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
