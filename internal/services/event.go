package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventsignup/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewEventService creates an EventService. now may be nil to use time.Now.
func NewEventService(eventRepo domain.EventRepository, timeout time.Duration, now func() time.Time) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		contextTimeout: timeoutOrDefault(timeout),
		now:            clockOrDefault(now),
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.CurrentParticipants = 0
	if err := event.Validate(); err != nil {
		return err
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, registrationOpen *bool, p domain.PaginationParams) (domain.Page[*domain.Event], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	events, total, err := s.eventRepo.List(ctx, domain.EventFilter{RegistrationOpen: registrationOpen, Now: s.now()}, p)
	if err != nil {
		return domain.Page[*domain.Event]{}, fmt.Errorf("list events: %w", err)
	}
	return domain.NewPage(events, p, total), nil
}

func (s *eventService) SearchEvents(ctx context.Context, term string, p domain.PaginationParams) (domain.Page[*domain.Event], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.Page[*domain.Event]{}, domain.NewValidationError("q", "is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	events, total, err := s.eventRepo.Search(ctx, term, p)
	if err != nil {
		return domain.Page[*domain.Event]{}, fmt.Errorf("search events: %w", err)
	}
	return domain.NewPage(events, p, total), nil
}

func (s *eventService) loadOwned(ctx context.Context, eventID, actingAccountID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != actingAccountID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID, actingAccountID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.loadOwned(ctx, eventID, actingAccountID)
	if err != nil {
		return nil, err
	}
	upd.Apply(event)
	event.UpdatedAt = s.now()

	// The repository checks the new max against the live count under a row lock.
	cached := event.CurrentParticipants
	event.CurrentParticipants = 0
	if err := event.Validate(); err != nil {
		return nil, err
	}
	event.CurrentParticipants = cached

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, actingAccountID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.loadOwned(ctx, eventID, actingAccountID); err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *eventService) GetEventStats(ctx context.Context) (*domain.EventStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	stats, err := s.eventRepo.Stats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	return stats, nil
}

func (s *eventService) GetOwnerEventStats(ctx context.Context, ownerID string) (*domain.OwnerEventStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	stats, err := s.eventRepo.StatsByOwner(ctx, ownerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("owner event stats: %w", err)
	}
	return stats, nil
}
