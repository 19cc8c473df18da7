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

// ReportConfig tunes the reporting service.
type ReportConfig struct {
	// BlockAfterStart mirrors the workflow setting so CanRegister agrees with Register.
	BlockAfterStart bool
	Timeout         time.Duration
	Now             func() time.Time
}

type reportService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	emailService     domain.EmailService
	observer         domain.RegistrationObserver
	logger           *slog.Logger
	blockAfterStart  bool
	contextTimeout   time.Duration
	now              func() time.Time
}

// NewReportService creates the read-only registration query layer. emailService and observer may be nil.
func NewReportService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	emailService domain.EmailService,
	observer domain.RegistrationObserver,
	logger *slog.Logger,
	cfg ReportConfig,
) domain.ReportService {
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &reportService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		emailService:     emailService,
		observer:         observer,
		logger:           logger,
		blockAfterStart:  cfg.BlockAfterStart,
		contextTimeout:   timeoutOrDefault(cfg.Timeout),
		now:              clockOrDefault(cfg.Now),
	}
}

func (s *reportService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *reportService) ListEventRegistrations(ctx context.Context, eventID string, p domain.PaginationParams) (domain.Page[*domain.RegistrationView], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	if _, err := s.getEvent(ctx, eventID); err != nil {
		return domain.Page[*domain.RegistrationView]{}, err
	}
	items, total, err := s.registrationRepo.ListByEventID(ctx, eventID, p)
	if err != nil {
		return domain.Page[*domain.RegistrationView]{}, fmt.Errorf("list event registrations: %w", err)
	}
	return domain.NewPage(items, p, total), nil
}

// GetEventRegistrationInfo reports from the live row count. A cached counter that disagrees
// is logged and reconciled; reconciliation failures do not fail the read.
func (s *reportService) GetEventRegistrationInfo(ctx context.Context, eventID string) (*domain.RegistrationInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	live, err := s.liveCount(ctx, event)
	if err != nil {
		return nil, err
	}

	now := s.now()
	open := policy.AcceptsRegistrations(event, now, s.blockAfterStart)
	full := policy.IsFull(event, live)
	return &domain.RegistrationInfo{
		EventID:            event.ID,
		Current:            live,
		Max:                event.MaxParticipants,
		IsCapacityLimited:  event.IsCapacityLimited,
		IsFull:             full,
		AvailableSlots:     policy.AvailableSlots(event, live),
		Deadline:           event.RegistrationDeadline,
		IsRegistrationOpen: policy.IsRegistrationOpen(event, now),
		HasStarted:         policy.HasEventStarted(event, now),
		HasEnded:           policy.HasEventEnded(event, now),
		CanRegister:        open && !full,
	}, nil
}

func (s *reportService) liveCount(ctx context.Context, event *domain.Event) (int, error) {
	live, err := s.registrationRepo.CountByEventID(ctx, event.ID)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	if live != event.CurrentParticipants {
		s.logger.WarnContext(ctx, "participant counter drift", "event_id", event.ID, "cached", event.CurrentParticipants, "live", live)
		s.observer.ObserveCounterDrift(event.ID)
		if _, err := s.registrationRepo.ReconcileCount(ctx, event.ID); err != nil {
			s.logger.WarnContext(ctx, "reconcile participant counter failed", "event_id", event.ID, "err", err)
		}
	}
	return live, nil
}

func (s *reportService) ListAccountRegistrations(ctx context.Context, accountID string, p domain.PaginationParams) (domain.Page[*domain.RegistrationView], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	items, total, err := s.registrationRepo.ListByAccountID(ctx, accountID, p)
	if err != nil {
		return domain.Page[*domain.RegistrationView]{}, fmt.Errorf("list account registrations: %w", err)
	}
	return domain.NewPage(items, p, total), nil
}

func (s *reportService) SearchRegistrations(ctx context.Context, term string, p domain.PaginationParams) (domain.Page[*domain.RegistrationView], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.Page[*domain.RegistrationView]{}, domain.NewValidationError("q", "is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	items, total, err := s.registrationRepo.Search(ctx, term, p)
	if err != nil {
		return domain.Page[*domain.RegistrationView]{}, fmt.Errorf("search registrations: %w", err)
	}
	return domain.NewPage(items, p, total), nil
}

// GetRegistrationStats counts "today" from local midnight of the service clock.
func (s *reportService) GetRegistrationStats(ctx context.Context) (*domain.RegistrationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	total, err := s.registrationRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	today, err := s.registrationRepo.CountSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("count today's registrations: %w", err)
	}
	return &domain.RegistrationStats{Total: total, Today: today}, nil
}

func (s *reportService) GetEventRegistrationStats(ctx context.Context, eventID string) (*domain.EventRegistrationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	live, err := s.liveCount(ctx, event)
	if err != nil {
		return nil, err
	}
	return &domain.EventRegistrationStats{
		EventID:           event.ID,
		Title:             event.Title,
		IsCapacityLimited: event.IsCapacityLimited,
		MaxParticipants:   event.MaxParticipants,
		Total:             live,
		Available:         policy.AvailableSlots(event, live),
	}, nil
}

func (s *reportService) ExportEventRegistrations(ctx context.Context, eventID, actingAccountID string) (*domain.RegistrationExport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != actingAccountID {
		return nil, domain.ErrForbidden
	}
	regs, err := s.registrationRepo.ExportByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("export registrations: %w", err)
	}
	return &domain.RegistrationExport{Event: event, Registrations: regs, GeneratedAt: s.now()}, nil
}

type exportRecipient struct {
	To string `validate:"required,email"`
}

func (s *reportService) EmailEventRegistrationExport(ctx context.Context, eventID, actingAccountID, to string) error {
	to = strings.TrimSpace(to)
	if err := validation.Struct(ctx, exportRecipient{To: to}); err != nil {
		return err
	}
	if s.emailService == nil {
		return errors.New("email export is not configured")
	}
	export, err := s.ExportEventRegistrations(ctx, eventID, actingAccountID)
	if err != nil {
		return err
	}
	data := &domain.RegistrationExportEmailData{
		EventTitle:  export.Event.Title,
		EventStart:  export.Event.StartTime,
		Total:       len(export.Registrations),
		GeneratedAt: export.GeneratedAt,
		Rows:        make([]domain.RegistrationExportRow, 0, len(export.Registrations)),
	}
	if export.Event.Location != nil {
		data.EventLocation = *export.Event.Location
	}
	for i, r := range export.Registrations {
		row := domain.RegistrationExportRow{
			Index:           i + 1,
			ParticipantName: r.ParticipantName,
			RegisteredBy:    r.AccountDisplayName,
			Phone:           r.AccountPhone,
			RegisteredAt:    r.RegisteredAt,
		}
		if r.Remark != nil {
			row.Remark = *r.Remark
		}
		data.Rows = append(data.Rows, row)
	}
	if err := s.emailService.SendRegistrationExport(ctx, to, data); err != nil {
		return fmt.Errorf("send registration export: %w", err)
	}
	return nil
}
