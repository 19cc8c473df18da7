package domain

import (
	"context"
	"strings"
	"time"
)

// Event is a schedulable activity that accepts registrations.
// CurrentParticipants is a cache of the live registration count, maintained only by the registration store.
// swagger:model Event
type Event struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          *string   `json:"description,omitempty"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	Location             *string   `json:"location,omitempty"`
	IsCapacityLimited    bool      `json:"is_capacity_limited"`
	MaxParticipants      *int      `json:"max_participants"`
	CurrentParticipants  int       `json:"current_participants"`
	OwnerID              string    `json:"owner_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(title string, description *string, start, end, deadline time.Time, location *string, capacityLimited bool, maxParticipants *int, ownerID string, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:                title,
		Description:          description,
		StartTime:            start,
		EndTime:              end,
		RegistrationDeadline: deadline,
		Location:             location,
		IsCapacityLimited:    capacityLimited,
		MaxParticipants:      maxParticipants,
		OwnerID:              ownerID,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
	}
}

// Validate checks the event invariants. It normalizes MaxParticipants to nil for unlimited events.
func (e *Event) Validate() error {
	v := &ValidationError{}
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		v.Add("title", "is required")
	} else if len([]rune(e.Title)) > 200 {
		v.Add("title", "must be at most 200 characters")
	}
	if e.StartTime.IsZero() {
		v.Add("start_time", "is required")
	}
	if e.EndTime.IsZero() {
		v.Add("end_time", "is required")
	}
	if e.RegistrationDeadline.IsZero() {
		v.Add("registration_deadline", "is required")
	}
	if !e.StartTime.IsZero() && !e.EndTime.IsZero() && !e.EndTime.After(e.StartTime) {
		v.Add("end_time", "must be after start_time")
	}
	if !e.RegistrationDeadline.IsZero() && !e.StartTime.IsZero() && e.RegistrationDeadline.After(e.StartTime) {
		v.Add("registration_deadline", "must not be after start_time")
	}
	if !e.IsCapacityLimited {
		e.MaxParticipants = nil
	} else {
		switch {
		case e.MaxParticipants == nil:
			v.Add("max_participants", "is required when capacity is limited")
		case *e.MaxParticipants < 1:
			v.Add("max_participants", "must be at least 1")
		case e.CurrentParticipants > *e.MaxParticipants:
			v.Add("max_participants", "must not be below the current participant count")
		}
	}
	if e.CurrentParticipants < 0 {
		v.Add("current_participants", "must not be negative")
	}
	if e.OwnerID == "" {
		v.Add("owner_id", "is required")
	}
	if v.HasErrors() {
		return v
	}
	return nil
}

// EventUpdate holds the fields an owner may change. Nil pointers leave the field untouched.
// ClearDescription / ClearLocation remove the optional text fields.
type EventUpdate struct {
	Title                *string
	Description          *string
	ClearDescription     bool
	StartTime            *time.Time
	EndTime              *time.Time
	RegistrationDeadline *time.Time
	Location             *string
	ClearLocation        bool
	IsCapacityLimited    *bool
	MaxParticipants      *int
}

// Apply copies the set fields of u onto e.
func (u EventUpdate) Apply(e *Event) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.ClearDescription {
		e.Description = nil
	} else if u.Description != nil {
		e.Description = u.Description
	}
	if u.StartTime != nil {
		e.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		e.EndTime = *u.EndTime
	}
	if u.RegistrationDeadline != nil {
		e.RegistrationDeadline = *u.RegistrationDeadline
	}
	if u.ClearLocation {
		e.Location = nil
	} else if u.Location != nil {
		e.Location = u.Location
	}
	if u.IsCapacityLimited != nil {
		e.IsCapacityLimited = *u.IsCapacityLimited
	}
	if u.MaxParticipants != nil {
		m := *u.MaxParticipants
		e.MaxParticipants = &m
	}
}

// EventFilter narrows event listings. A nil RegistrationOpen lists everything.
type EventFilter struct {
	RegistrationOpen *bool
	Now              time.Time
}

// EventStats are global event counters at a point in time.
type EventStats struct {
	Total            int `json:"total"`
	Upcoming         int `json:"upcoming"`
	Ongoing          int `json:"ongoing"`
	OpenRegistration int `json:"open_registration"`
}

// OwnerEventStats are event counters for one owner.
type OwnerEventStats struct {
	Total    int `json:"total"`
	Upcoming int `json:"upcoming"`
}

// EventRepository defines the interface for event storage.
// Update never writes current_participants; only RegistrationRepository mutates it.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f EventFilter, p PaginationParams) ([]*Event, int, error)
	Search(ctx context.Context, term string, p PaginationParams) ([]*Event, int, error)
	Stats(ctx context.Context, now time.Time) (*EventStats, error)
	StatsByOwner(ctx context.Context, ownerID string, now time.Time) (*OwnerEventStats, error)
}

// EventService defines owner-authorized event management and event reporting.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, registrationOpen *bool, p PaginationParams) (Page[*Event], error)
	SearchEvents(ctx context.Context, term string, p PaginationParams) (Page[*Event], error)
	UpdateEvent(ctx context.Context, eventID, actingAccountID string, upd EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, actingAccountID string) error
	GetEventStats(ctx context.Context) (*EventStats, error)
	GetOwnerEventStats(ctx context.Context, ownerID string) (*OwnerEventStats, error)
}
