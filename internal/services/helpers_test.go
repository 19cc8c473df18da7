package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventsignup/internal/domain"
	"eventsignup/internal/repository/memory"
)

var refTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// absentID is well formed but never assigned by the store.
const absentID = "00000000-0000-4000-8000-000000000000"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RegistrationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.RegistrationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type recordingObserver struct {
	mu            sync.Mutex
	registrations map[string]int
	cancellations map[string]int
	drift         []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{registrations: map[string]int{}, cancellations: map[string]int{}}
}

func (o *recordingObserver) ObserveRegistration(outcome string, _ time.Duration) {
	o.mu.Lock()
	o.registrations[outcome]++
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveCancellation(outcome string) {
	o.mu.Lock()
	o.cancellations[outcome]++
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveCounterDrift(eventID string) {
	o.mu.Lock()
	o.drift = append(o.drift, eventID)
	o.mu.Unlock()
}

type fixture struct {
	store     *memory.Store
	clock     *testClock
	publisher *recordingPublisher
	observer  *recordingObserver
	svc       domain.RegistrationService
	report    domain.ReportService
}

func newFixture(t *testing.T, blockAfterStart bool) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.New(),
		clock:     newTestClock(refTime),
		publisher: &recordingPublisher{},
		observer:  newRecordingObserver(),
	}
	f.svc = NewRegistrationService(f.store.Events(), f.store.Registrations(), f.publisher, f.observer, discardLogger(),
		RegistrationConfig{BlockAfterStart: blockAfterStart, Timeout: time.Second, Now: f.clock.Now})
	f.report = NewReportService(f.store.Events(), f.store.Registrations(), nil, f.observer, discardLogger(),
		ReportConfig{BlockAfterStart: blockAfterStart, Timeout: time.Second, Now: f.clock.Now})
	return f
}

func (f *fixture) account(t *testing.T, key string) string {
	t.Helper()
	a := domain.NewAccount(key, "Name "+key, "phone-"+key, refTime.AddDate(-30, 0, 0), domain.GenderOther, false, refTime)
	require.NoError(t, f.store.Accounts().Create(context.Background(), a))
	return a.ID
}

// event creates an event starting in two days with the deadline one day out.
func (f *fixture) event(t *testing.T, ownerID string, max *int) *domain.Event {
	t.Helper()
	e := &domain.Event{
		Title:                "Camp",
		StartTime:            refTime.Add(48 * time.Hour),
		EndTime:              refTime.Add(52 * time.Hour),
		RegistrationDeadline: refTime.Add(24 * time.Hour),
		IsCapacityLimited:    max != nil,
		MaxParticipants:      max,
		OwnerID:              ownerID,
		CreatedAt:            refTime,
		UpdatedAt:            refTime,
	}
	require.NoError(t, e.Validate())
	require.NoError(t, f.store.Events().Create(context.Background(), e))
	return e
}

func (f *fixture) counter(t *testing.T, eventID string) int {
	t.Helper()
	e, err := f.store.Events().GetByID(context.Background(), eventID)
	require.NoError(t, err)
	return e.CurrentParticipants
}

func (f *fixture) live(t *testing.T, eventID string) int {
	t.Helper()
	n, err := f.store.Registrations().CountByEventID(context.Background(), eventID)
	require.NoError(t, err)
	return n
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
