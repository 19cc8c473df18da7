// Package memory provides an in-process entity store with the same semantics as the postgres
// repositories. A single mutex guards every map, so each method is atomic on its own.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventsignup/internal/domain"
)

// Store holds all entities in memory.
type Store struct {
	mu            sync.RWMutex
	accounts      map[string]domain.Account
	events        map[string]domain.Event
	registrations map[string]domain.Registration
	announcements map[string]domain.Announcement
	newID         func() string
}

// New returns an empty Store that assigns random UUIDs.
func New() *Store {
	return &Store{
		accounts:      make(map[string]domain.Account),
		events:        make(map[string]domain.Event),
		registrations: make(map[string]domain.Registration),
		announcements: make(map[string]domain.Announcement),
		newID:         uuid.NewString,
	}
}

// WithIDGenerator replaces the id source, for deterministic tests.
func (s *Store) WithIDGenerator(next func() string) *Store {
	s.mu.Lock()
	s.newID = next
	s.mu.Unlock()
	return s
}

func (s *Store) Accounts() domain.AccountRepository           { return accountRepository{s} }
func (s *Store) Events() domain.EventRepository               { return eventRepository{s} }
func (s *Store) Registrations() domain.RegistrationRepository { return registrationRepository{s} }
func (s *Store) Announcements() domain.AnnouncementRepository { return announcementRepository{s} }

func paginate[T any](items []T, p domain.PaginationParams) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if p.PageSize <= 0 || end < start || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(s *string, term string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), strings.ToLower(term))
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// --- accounts ---

type accountRepository struct{ s *Store }

func cloneAccount(a domain.Account) *domain.Account {
	a.AvatarURL = clonePtr(a.AvatarURL)
	return &a
}

func (r accountRepository) ensureUniqueLocked(a *domain.Account) error {
	for id, existing := range r.s.accounts {
		if id == a.ID {
			continue
		}
		if existing.IdentityKey == a.IdentityKey || existing.Phone == a.Phone {
			return domain.ErrDuplicateAccount
		}
	}
	return nil
}

func (r accountRepository) Create(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.ensureUniqueLocked(a); err != nil {
		return err
	}
	a.ID = r.s.newID()
	r.s.accounts[a.ID] = *cloneAccount(*a)
	return nil
}

func (r accountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r accountRepository) GetByIdentityKey(_ context.Context, identityKey string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.IdentityKey == identityKey {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r accountRepository) Update(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.accounts[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := r.ensureUniqueLocked(a); err != nil {
		return err
	}
	existing.DisplayName = a.DisplayName
	existing.Phone = a.Phone
	existing.BirthDate = a.BirthDate
	existing.Gender = a.Gender
	existing.AvatarURL = clonePtr(a.AvatarURL)
	r.s.accounts[a.ID] = existing
	return nil
}

func (r accountRepository) List(_ context.Context, p domain.PaginationParams) ([]*domain.Account, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*domain.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		all = append(all, cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, p), len(all), nil
}

// Delete cascades to the account's events, announcements and registrations and
// releases the counters its registrations held on other events.
func (r accountRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	for eid, e := range r.s.events {
		if e.OwnerID == id {
			r.s.deleteEventLocked(eid)
		}
	}
	for rid, reg := range r.s.registrations {
		if reg.AccountID == id {
			delete(r.s.registrations, rid)
			r.s.decrementLocked(reg.EventID)
		}
	}
	for aid, a := range r.s.announcements {
		if a.OwnerID == id {
			delete(r.s.announcements, aid)
		}
	}
	delete(r.s.accounts, id)
	return nil
}

// --- events ---

type eventRepository struct{ s *Store }

func cloneEvent(e domain.Event) *domain.Event {
	e.Description = clonePtr(e.Description)
	e.Location = clonePtr(e.Location)
	e.MaxParticipants = clonePtr(e.MaxParticipants)
	return &e
}

func (s *Store) deleteEventLocked(id string) {
	for rid, reg := range s.registrations {
		if reg.EventID == id {
			delete(s.registrations, rid)
		}
	}
	delete(s.events, id)
}

func (s *Store) decrementLocked(eventID string) {
	e, ok := s.events[eventID]
	if !ok {
		return
	}
	if e.CurrentParticipants > 0 {
		e.CurrentParticipants--
	}
	s.events[eventID] = e
}

func (s *Store) liveCountLocked(eventID string) int {
	n := 0
	for _, reg := range s.registrations {
		if reg.EventID == eventID {
			n++
		}
	}
	return n
}

func (r eventRepository) Create(_ context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[e.OwnerID]; !ok {
		return domain.ErrNotFound
	}
	e.ID = r.s.newID()
	e.CurrentParticipants = 0
	r.s.events[e.ID] = *cloneEvent(*e)
	return nil
}

func (r eventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r eventRepository) Update(_ context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.events[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.IsCapacityLimited && e.MaxParticipants != nil && r.s.liveCountLocked(e.ID) > *e.MaxParticipants {
		return domain.NewValidationError("max_participants", "must not be below the current participant count")
	}
	updated := *cloneEvent(*e)
	updated.CurrentParticipants = existing.CurrentParticipants
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	r.s.events[e.ID] = updated
	e.CurrentParticipants = existing.CurrentParticipants
	return nil
}

func (r eventRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	r.s.deleteEventLocked(id)
	return nil
}

func sortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].StartTime.Before(events[j].StartTime)
		}
		return events[i].ID < events[j].ID
	})
}

func (r eventRepository) collect(match func(e domain.Event) bool, p domain.PaginationParams) ([]*domain.Event, int) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*domain.Event, 0)
	for _, e := range r.s.events {
		if match(e) {
			all = append(all, cloneEvent(e))
		}
	}
	sortEvents(all)
	return paginate(all, p), len(all)
}

func (r eventRepository) List(_ context.Context, f domain.EventFilter, p domain.PaginationParams) ([]*domain.Event, int, error) {
	items, total := r.collect(func(e domain.Event) bool {
		if f.RegistrationOpen == nil {
			return true
		}
		return *f.RegistrationOpen == f.Now.Before(e.RegistrationDeadline)
	}, p)
	return items, total, nil
}

func (r eventRepository) Search(_ context.Context, term string, p domain.PaginationParams) ([]*domain.Event, int, error) {
	items, total := r.collect(func(e domain.Event) bool {
		return containsFold(&e.Title, term) || containsFold(e.Description, term) || containsFold(e.Location, term)
	}, p)
	return items, total, nil
}

func (r eventRepository) Stats(_ context.Context, now time.Time) (*domain.EventStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st := &domain.EventStats{}
	for _, e := range r.s.events {
		st.Total++
		if e.StartTime.After(now) {
			st.Upcoming++
		}
		if !e.StartTime.After(now) && e.EndTime.After(now) {
			st.Ongoing++
		}
		if e.RegistrationDeadline.After(now) {
			st.OpenRegistration++
		}
	}
	return st, nil
}

func (r eventRepository) StatsByOwner(_ context.Context, ownerID string, now time.Time) (*domain.OwnerEventStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st := &domain.OwnerEventStats{}
	for _, e := range r.s.events {
		if e.OwnerID != ownerID {
			continue
		}
		st.Total++
		if e.StartTime.After(now) {
			st.Upcoming++
		}
	}
	return st, nil
}
