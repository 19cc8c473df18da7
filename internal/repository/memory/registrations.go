package memory

import (
	"context"
	"sort"
	"time"

	"eventsignup/internal/domain"
	"eventsignup/internal/policy"
)

type registrationRepository struct{ s *Store }

func cloneRegistration(r domain.Registration) *domain.Registration {
	r.Remark = clonePtr(r.Remark)
	return &r
}

func (s *Store) viewLocked(reg domain.Registration) *domain.RegistrationView {
	v := &domain.RegistrationView{Registration: *cloneRegistration(reg)}
	if e, ok := s.events[reg.EventID]; ok {
		v.EventTitle = e.Title
		v.EventStartTime = e.StartTime
		v.EventEndTime = e.EndTime
		v.EventLocation = clonePtr(e.Location)
	}
	if a, ok := s.accounts[reg.AccountID]; ok {
		v.AccountDisplayName = a.DisplayName
		v.AccountPhone = a.Phone
	}
	return v
}

func (r registrationRepository) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (r registrationRepository) GetViewByID(_ context.Context, id string) (*domain.RegistrationView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.s.viewLocked(reg), nil
}

func (s *Store) findLocked(eventID, accountID, participantName string) (domain.Registration, bool) {
	for _, reg := range s.registrations {
		if reg.EventID == eventID && reg.AccountID == accountID && reg.ParticipantName == participantName {
			return reg, true
		}
	}
	return domain.Registration{}, false
}

func (r registrationRepository) GetByEventAccountAndName(_ context.Context, eventID, accountID, participantName string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.findLocked(eventID, accountID, participantName)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (r registrationRepository) CountByEventID(_ context.Context, eventID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.liveCountLocked(eventID), nil
}

func (r registrationRepository) CreateAndIncrement(_ context.Context, reg *domain.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[reg.EventID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.s.accounts[reg.AccountID]; !ok {
		return domain.ErrNotFound
	}
	if !policy.CanAccept(&e, r.s.liveCountLocked(reg.EventID)) {
		return domain.ErrEventFull
	}
	if _, dup := r.s.findLocked(reg.EventID, reg.AccountID, reg.ParticipantName); dup {
		return domain.ErrDuplicateRegistration
	}
	reg.ID = r.s.newID()
	r.s.registrations[reg.ID] = *cloneRegistration(*reg)
	e.CurrentParticipants++
	r.s.events[e.ID] = e
	return nil
}

func (r registrationRepository) DeleteAndDecrement(_ context.Context, id, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok || reg.AccountID != accountID {
		return domain.ErrNotFound
	}
	delete(r.s.registrations, id)
	r.s.decrementLocked(reg.EventID)
	return nil
}

func (r registrationRepository) ReconcileCount(_ context.Context, eventID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[eventID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	e.CurrentParticipants = r.s.liveCountLocked(eventID)
	r.s.events[eventID] = e
	return e.CurrentParticipants, nil
}

func (r registrationRepository) collect(match func(reg domain.Registration) bool, ascending bool) []*domain.RegistrationView {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	views := make([]*domain.RegistrationView, 0)
	for _, reg := range r.s.registrations {
		if match(reg) {
			views = append(views, r.s.viewLocked(reg))
		}
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			if ascending {
				return a.RegisteredAt.Before(b.RegisteredAt)
			}
			return a.RegisteredAt.After(b.RegisteredAt)
		}
		return a.ID < b.ID
	})
	return views
}

func (r registrationRepository) ListByEventID(_ context.Context, eventID string, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	all := r.collect(func(reg domain.Registration) bool { return reg.EventID == eventID }, true)
	return paginate(all, p), len(all), nil
}

func (r registrationRepository) ListByAccountID(_ context.Context, accountID string, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	all := r.collect(func(reg domain.Registration) bool { return reg.AccountID == accountID }, false)
	return paginate(all, p), len(all), nil
}

func (r registrationRepository) Search(_ context.Context, term string, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	all := r.collect(func(reg domain.Registration) bool { return containsFold(&reg.ParticipantName, term) }, false)
	return paginate(all, p), len(all), nil
}

func (r registrationRepository) ExportByEventID(_ context.Context, eventID string) ([]*domain.RegistrationView, error) {
	return r.collect(func(reg domain.Registration) bool { return reg.EventID == eventID }, true), nil
}

func (r registrationRepository) CountAll(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.registrations), nil
}

func (r registrationRepository) CountSince(_ context.Context, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, reg := range r.s.registrations {
		if !reg.RegisteredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// --- announcements ---

type announcementRepository struct{ s *Store }

func (r announcementRepository) Create(_ context.Context, a *domain.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[a.OwnerID]; !ok {
		return domain.ErrNotFound
	}
	a.ID = r.s.newID()
	r.s.announcements[a.ID] = *a
	return nil
}

func (r announcementRepository) GetByID(_ context.Context, id string) (*domain.Announcement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.announcements[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r announcementRepository) Update(_ context.Context, a *domain.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.announcements[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Title = a.Title
	existing.Content = a.Content
	existing.UpdatedAt = a.UpdatedAt
	r.s.announcements[a.ID] = existing
	return nil
}

func (r announcementRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.announcements[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.announcements, id)
	return nil
}

func (r announcementRepository) collect(match func(a domain.Announcement) bool, p domain.PaginationParams) ([]*domain.Announcement, int) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*domain.Announcement, 0)
	for _, a := range r.s.announcements {
		if match(a) {
			a := a
			all = append(all, &a)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, p), len(all)
}

func (r announcementRepository) List(_ context.Context, ownerID string, p domain.PaginationParams) ([]*domain.Announcement, int, error) {
	items, total := r.collect(func(a domain.Announcement) bool { return ownerID == "" || a.OwnerID == ownerID }, p)
	return items, total, nil
}

func (r announcementRepository) Search(_ context.Context, term string, p domain.PaginationParams) ([]*domain.Announcement, int, error) {
	items, total := r.collect(func(a domain.Announcement) bool {
		return containsFold(&a.Title, term) || containsFold(&a.Content, term)
	}, p)
	return items, total, nil
}
