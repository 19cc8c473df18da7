package domain

import (
	"context"
	"time"
)

// Registration is one participant's claim on one slot of one Event, recorded under the acting account.
// swagger:model Registration
type Registration struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	AccountID       string    `json:"account_id"`
	ParticipantName string    `json:"participant_name"`
	Remark          *string   `json:"remark,omitempty"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// NewRegistration creates a new Registration. ID is set by the repository on create.
func NewRegistration(eventID, accountID, participantName string, remark *string, registeredAt time.Time) *Registration {
	return &Registration{
		EventID:         eventID,
		AccountID:       accountID,
		ParticipantName: participantName,
		Remark:          remark,
		RegisteredAt:    registeredAt,
	}
}

// RegisterInput is a registration request as it enters the workflow.
type RegisterInput struct {
	EventID         string  `validate:"required,uuid"`
	AccountID       string  `validate:"required,uuid"`
	ParticipantName string  `validate:"required,max=100"`
	Remark          *string `validate:"omitempty,max=1000"`
}

// RegistrationView is a registration joined with the display fields of its event and registering account.
// swagger:model RegistrationView
type RegistrationView struct {
	Registration
	EventTitle         string    `json:"event_title"`
	EventStartTime     time.Time `json:"event_start_time"`
	EventEndTime       time.Time `json:"event_end_time"`
	EventLocation      *string   `json:"event_location,omitempty"`
	AccountDisplayName string    `json:"account_display_name"`
	AccountPhone       string    `json:"account_phone"`
}

// RegistrationInfo is the user-facing capacity and deadline summary of one event.
// Current is always a live row count, never the cached counter.
type RegistrationInfo struct {
	EventID            string    `json:"event_id"`
	Current            int       `json:"current"`
	Max                *int      `json:"max"`
	IsCapacityLimited  bool      `json:"is_capacity_limited"`
	IsFull             bool      `json:"is_full"`
	AvailableSlots     *int      `json:"available_slots"`
	Deadline           time.Time `json:"deadline"`
	IsRegistrationOpen bool      `json:"is_registration_open"`
	HasStarted         bool      `json:"has_started"`
	HasEnded           bool      `json:"has_ended"`
	CanRegister        bool      `json:"can_register"`
}

// RegistrationStats are global registration counters.
type RegistrationStats struct {
	Total int `json:"total"`
	Today int `json:"today"`
}

// EventRegistrationStats summarises registrations for one event. Available is nil for unlimited events.
type EventRegistrationStats struct {
	EventID           string `json:"event_id"`
	Title             string `json:"title"`
	IsCapacityLimited bool   `json:"is_capacity_limited"`
	MaxParticipants   *int   `json:"max_participants"`
	Total             int    `json:"total"`
	Available         *int   `json:"available"`
}

// RegistrationExport is the full registration list of one event for its owner.
type RegistrationExport struct {
	Event         *Event              `json:"event"`
	Registrations []*RegistrationView `json:"registrations"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// RegistrationRepository is the registration side of the entity store.
// CreateAndIncrement and DeleteAndDecrement are the only writers of events.current_participants
// besides ReconcileCount, and each runs as a single transaction.
type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetViewByID(ctx context.Context, id string) (*RegistrationView, error)
	GetByEventAccountAndName(ctx context.Context, eventID, accountID, participantName string) (*Registration, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
	// CreateAndIncrement inserts reg and increments the event counter atomically, re-checking capacity
	// under a row lock. Returns ErrNotFound, ErrEventFull or ErrDuplicateRegistration on business failure.
	CreateAndIncrement(ctx context.Context, reg *Registration) error
	// DeleteAndDecrement removes the registration owned by accountID and decrements the counter, clamped at 0.
	DeleteAndDecrement(ctx context.Context, id, accountID string) error
	// ReconcileCount overwrites the cached counter with the live row count and returns it.
	ReconcileCount(ctx context.Context, eventID string) (int, error)
	ListByEventID(ctx context.Context, eventID string, p PaginationParams) ([]*RegistrationView, int, error)
	ListByAccountID(ctx context.Context, accountID string, p PaginationParams) ([]*RegistrationView, int, error)
	Search(ctx context.Context, term string, p PaginationParams) ([]*RegistrationView, int, error)
	ExportByEventID(ctx context.Context, eventID string) ([]*RegistrationView, error)
	CountAll(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// RegistrationService is the registration workflow: register and cancel.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*Registration, error)
	Cancel(ctx context.Context, registrationID, accountID string) error
	GetRegistration(ctx context.Context, registrationID string) (*RegistrationView, error)
}

// ReportService is the read-only query layer over registrations.
type ReportService interface {
	ListEventRegistrations(ctx context.Context, eventID string, p PaginationParams) (Page[*RegistrationView], error)
	GetEventRegistrationInfo(ctx context.Context, eventID string) (*RegistrationInfo, error)
	ListAccountRegistrations(ctx context.Context, accountID string, p PaginationParams) (Page[*RegistrationView], error)
	SearchRegistrations(ctx context.Context, term string, p PaginationParams) (Page[*RegistrationView], error)
	GetRegistrationStats(ctx context.Context) (*RegistrationStats, error)
	GetEventRegistrationStats(ctx context.Context, eventID string) (*EventRegistrationStats, error)
	ExportEventRegistrations(ctx context.Context, eventID, actingAccountID string) (*RegistrationExport, error)
	EmailEventRegistrationExport(ctx context.Context, eventID, actingAccountID, to string) error
}

// RegistrationEventType names a registration lifecycle message.
type RegistrationEventType string

const (
	RegistrationCreated   RegistrationEventType = "registration.created"
	RegistrationCancelled RegistrationEventType = "registration.cancelled"
)

// RegistrationEvent is published after a registration commits or is cancelled.
type RegistrationEvent struct {
	Type            RegistrationEventType `json:"type"`
	RegistrationID  string                `json:"registration_id"`
	EventID         string                `json:"event_id"`
	AccountID       string                `json:"account_id"`
	ParticipantName string                `json:"participant_name,omitempty"`
	OccurredAt      time.Time             `json:"occurred_at"`
}

// RegistrationPublisher delivers registration lifecycle messages to downstream consumers.
type RegistrationPublisher interface {
	Publish(ctx context.Context, evt RegistrationEvent) error
}

// RegistrationObserver records workflow outcomes (metrics).
type RegistrationObserver interface {
	ObserveRegistration(outcome string, duration time.Duration)
	ObserveCancellation(outcome string)
	ObserveCounterDrift(eventID string)
}
