package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventsignup/internal/domain"
	"eventsignup/internal/policy"
	"eventsignup/internal/validation"
)

// RegistrationConfig tunes the registration workflow.
type RegistrationConfig struct {
	// BlockAfterStart rejects registrations once the event has started, even if the deadline is later.
	BlockAfterStart bool
	// CancelBlockAfterStart rejects cancellations once the event has started.
	CancelBlockAfterStart bool
	Timeout               time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type registrationService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	publisher        domain.RegistrationPublisher
	observer         domain.RegistrationObserver
	logger           *slog.Logger
	cfg              RegistrationConfig
	now              func() time.Time
}

// NewRegistrationService creates the registration workflow. publisher and observer may be nil.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	publisher domain.RegistrationPublisher,
	observer domain.RegistrationObserver,
	logger *slog.Logger,
	cfg RegistrationConfig,
) domain.RegistrationService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Timeout = timeoutOrDefault(cfg.Timeout)
	return &registrationService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		publisher:        publisher,
		observer:         observer,
		logger:           logger,
		cfg:              cfg,
		now:              clockOrDefault(cfg.Now),
	}
}

func (s *registrationService) Register(ctx context.Context, in domain.RegisterInput) (*domain.Registration, error) {
	began := time.Now()
	reg, err := s.register(ctx, in)
	kind := domain.ErrorKind(err)
	s.observer.ObserveRegistration(kind, time.Since(began))
	if err != nil {
		if kind != "storage" {
			s.logger.InfoContext(ctx, "registration rejected", "kind", kind, "event_id", in.EventID, "account_id", in.AccountID)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration created", "registration_id", reg.ID, "event_id", reg.EventID, "account_id", reg.AccountID)
	s.publish(ctx, domain.RegistrationEvent{
		Type:            domain.RegistrationCreated,
		RegistrationID:  reg.ID,
		EventID:         reg.EventID,
		AccountID:       reg.AccountID,
		ParticipantName: reg.ParticipantName,
		OccurredAt:      reg.RegisteredAt,
	})
	return reg, nil
}

// register runs the ordered checks and stops at the first failure. The pre-checks only produce
// clean errors early; CreateAndIncrement repeats capacity and uniqueness under a lock.
func (s *registrationService) register(ctx context.Context, in domain.RegisterInput) (*domain.Registration, error) {
	in.ParticipantName = strings.TrimSpace(in.ParticipantName)
	if in.Remark != nil {
		remark := strings.TrimSpace(*in.Remark)
		if remark == "" {
			in.Remark = nil
		} else {
			in.Remark = &remark
		}
	}
	if err := validation.Struct(ctx, in); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	now := s.now()
	if !policy.IsRegistrationOpen(event, now) {
		return nil, fmt.Errorf("%w: registration deadline has passed", domain.ErrRegistrationClosed)
	}
	if s.cfg.BlockAfterStart && policy.HasEventStarted(event, now) {
		return nil, fmt.Errorf("%w: event has already started", domain.ErrRegistrationClosed)
	}

	if _, err := s.registrationRepo.GetByEventAccountAndName(ctx, in.EventID, in.AccountID, in.ParticipantName); err == nil {
		return nil, domain.ErrDuplicateRegistration
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find registration: %w", err)
	}

	count, err := s.registrationRepo.CountByEventID(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if !policy.CanAccept(event, count) {
		return nil, domain.ErrEventFull
	}

	reg := domain.NewRegistration(in.EventID, in.AccountID, in.ParticipantName, in.Remark, now)
	if err := s.registrationRepo.CreateAndIncrement(ctx, reg); err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) Cancel(ctx context.Context, registrationID, accountID string) error {
	reg, err := s.cancel(ctx, registrationID, accountID)
	kind := domain.ErrorKind(err)
	s.observer.ObserveCancellation(kind)
	if err != nil {
		if kind != "storage" {
			s.logger.InfoContext(ctx, "cancellation rejected", "kind", kind, "registration_id", registrationID, "account_id", accountID)
		}
		return err
	}
	s.logger.InfoContext(ctx, "registration cancelled", "registration_id", reg.ID, "event_id", reg.EventID, "account_id", accountID)
	s.publish(ctx, domain.RegistrationEvent{
		Type:            domain.RegistrationCancelled,
		RegistrationID:  reg.ID,
		EventID:         reg.EventID,
		AccountID:       reg.AccountID,
		ParticipantName: reg.ParticipantName,
		OccurredAt:      s.now(),
	})
	return nil
}

type cancelInput struct {
	RegistrationID string `validate:"required,uuid"`
	AccountID      string `validate:"required,uuid"`
}

func (s *registrationService) cancel(ctx context.Context, registrationID, accountID string) (*domain.Registration, error) {
	if err := validation.Struct(ctx, cancelInput{RegistrationID: registrationID, AccountID: accountID}); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.AccountID != accountID {
		return nil, domain.ErrForbidden
	}

	if s.cfg.CancelBlockAfterStart {
		event, err := s.eventRepo.GetByID(ctx, reg.EventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("get event: %w", err)
		}
		if policy.HasEventStarted(event, s.now()) {
			return nil, fmt.Errorf("%w: event has already started", domain.ErrRegistrationClosed)
		}
	}

	if err := s.registrationRepo.DeleteAndDecrement(ctx, registrationID, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delete registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, registrationID string) (*domain.RegistrationView, error) {
	if err := validation.Var(ctx, "registration_id", registrationID, "required,uuid"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	v, err := s.registrationRepo.GetViewByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return v, nil
}

// publish is best effort: the registration has already committed.
func (s *registrationService) publish(ctx context.Context, evt domain.RegistrationEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "publish registration event failed", "type", string(evt.Type), "registration_id", evt.RegistrationID, "err", err)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.RegistrationEvent) error { return nil }

type noopObserver struct{}

func (noopObserver) ObserveRegistration(string, time.Duration) {}
func (noopObserver) ObserveCancellation(string)                {}
func (noopObserver) ObserveCounterDrift(string)                {}
