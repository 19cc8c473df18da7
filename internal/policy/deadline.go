package policy

import (
	"time"

	"eventsignup/internal/domain"
)

// IsRegistrationOpen reports whether now is strictly before the registration deadline.
func IsRegistrationOpen(e *domain.Event, now time.Time) bool {
	return now.Before(e.RegistrationDeadline)
}

// HasEventStarted reports whether now is at or after the start time.
func HasEventStarted(e *domain.Event, now time.Time) bool {
	return !now.Before(e.StartTime)
}

// HasEventEnded reports whether now is at or after the end time.
func HasEventEnded(e *domain.Event, now time.Time) bool {
	return !now.Before(e.EndTime)
}

// AcceptsRegistrations combines the deadline with the optional start-time cutoff.
func AcceptsRegistrations(e *domain.Event, now time.Time, blockAfterStart bool) bool {
	if !IsRegistrationOpen(e, now) {
		return false
	}
	if blockAfterStart && HasEventStarted(e, now) {
		return false
	}
	return true
}
