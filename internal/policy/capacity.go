// Package policy holds the pure capacity and time rules applied to events.
// Nothing here performs I/O; callers pass in the live count and the current time.
package policy

import "eventsignup/internal/domain"

// CanAccept reports whether one more registration fits given the live count.
// A limited event with no max configured accepts nothing.
func CanAccept(e *domain.Event, currentCount int) bool {
	if !e.IsCapacityLimited {
		return true
	}
	if e.MaxParticipants == nil {
		return false
	}
	return currentCount < *e.MaxParticipants
}

// AvailableSlots returns the remaining slots, clamped at 0, or nil for unlimited events.
func AvailableSlots(e *domain.Event, currentCount int) *int {
	if !e.IsCapacityLimited {
		return nil
	}
	n := 0
	if e.MaxParticipants != nil {
		n = *e.MaxParticipants - currentCount
	}
	if n < 0 {
		n = 0
	}
	return &n
}

// IsFull is the negation of CanAccept.
func IsFull(e *domain.Event, currentCount int) bool {
	return !CanAccept(e, currentCount)
}
