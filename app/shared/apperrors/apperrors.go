package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions the interaction surface must be able to
// distinguish. Repository and service code wraps these with %w so callers
// match with errors.Is.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEntry  = errors.New("duplicate entry")

	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session is not open")
	ErrSessionFinished   = errors.New("session has finished")
	ErrSessionCancelled  = errors.New("session is cancelled")
	ErrSessionFull       = errors.New("session slot is full")
	ErrSessionPermission = errors.New("not the session creator")

	ErrAlreadyInQueue  = errors.New("already in session queue")
	ErrNotInQueue      = errors.New("not in session queue")
	ErrAlreadyAccepted = errors.New("already accepted for this role")
)

// ValidationError reports a specific violated input constraint. It is always
// recoverable by the invoking user.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUserFacing reports whether err is one of the conditions that should be
// shown to the invoking user verbatim. Anything else crosses the boundary as
// a generic failure message while the cause is logged.
func IsUserFacing(err error) bool {
	if IsValidation(err) {
		return true
	}
	for _, sentinel := range []error{
		ErrProfileNotFound, ErrProfileExists, ErrAccountNotFound, ErrDuplicateEntry,
		ErrSessionNotFound, ErrSessionClosed, ErrSessionFinished, ErrSessionCancelled,
		ErrSessionFull, ErrSessionPermission,
		ErrAlreadyInQueue, ErrNotInQueue, ErrAlreadyAccepted,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
