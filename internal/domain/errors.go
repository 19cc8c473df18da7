package domain

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors shared by the services and the storage layer. Callers test them with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidInput          = errors.New("invalid input")
	ErrRegistrationClosed    = errors.New("registration closed")
	ErrDuplicateRegistration = errors.New("participant already registered for this event")
	ErrEventFull             = errors.New("event is full")
	ErrDuplicateAccount      = errors.New("identity key or phone already in use")
)

// ValidationError carries field level problems found before any storage call.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	FieldErrors map[string]string
}

// NewValidationError returns a ValidationError holding a single field problem.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInvalidInput) match validation failures.
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add records a problem for field, keeping the first message per field.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, ok := v.FieldErrors[field]; ok {
		return
	}
	v.FieldErrors[field] = message
}

// HasErrors reports whether any field problem was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// ErrorKind maps an error to a stable label for logs and metrics.
// Everything that is not a known business failure is reported as "storage".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRegistrationClosed):
		return "registration_closed"
	case errors.Is(err, ErrDuplicateRegistration):
		return "duplicate_registration"
	case errors.Is(err, ErrEventFull):
		return "event_full"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrDuplicateAccount):
		return "duplicate_account"
	default:
		return "storage"
	}
}

// IsBusinessError reports whether err is an expected, user-correctable condition rather than a fault.
func IsBusinessError(err error) bool {
	k := ErrorKind(err)
	return k != "ok" && k != "storage"
}
