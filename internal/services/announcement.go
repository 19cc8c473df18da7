package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventsignup/internal/domain"
)

type announcementService struct {
	repo           domain.AnnouncementRepository
	contextTimeout time.Duration
	now            func() time.Time
}

func NewAnnouncementService(repo domain.AnnouncementRepository, timeout time.Duration, now func() time.Time) domain.AnnouncementService {
	return &announcementService{repo: repo, contextTimeout: timeoutOrDefault(timeout), now: clockOrDefault(now)}
}

func (s *announcementService) Create(ctx context.Context, a *domain.Announcement) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

func (s *announcementService) GetByID(ctx context.Context, id string) (*domain.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return a, nil
}

func (s *announcementService) List(ctx context.Context, ownerID string, p domain.PaginationParams) (domain.Page[*domain.Announcement], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	items, total, err := s.repo.List(ctx, ownerID, p)
	if err != nil {
		return domain.Page[*domain.Announcement]{}, fmt.Errorf("list announcements: %w", err)
	}
	return domain.NewPage(items, p, total), nil
}

func (s *announcementService) Search(ctx context.Context, term string, p domain.PaginationParams) (domain.Page[*domain.Announcement], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.Page[*domain.Announcement]{}, domain.NewValidationError("q", "is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p = p.Normalize()
	items, total, err := s.repo.Search(ctx, term, p)
	if err != nil {
		return domain.Page[*domain.Announcement]{}, fmt.Errorf("search announcements: %w", err)
	}
	return domain.NewPage(items, p, total), nil
}

func (s *announcementService) loadOwned(ctx context.Context, id, actingAccountID string) (*domain.Announcement, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	if a.OwnerID != actingAccountID {
		return nil, domain.ErrForbidden
	}
	return a, nil
}

func (s *announcementService) Update(ctx context.Context, id, actingAccountID string, upd domain.AnnouncementUpdate) (*domain.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	a, err := s.loadOwned(ctx, id, actingAccountID)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		a.Title = *upd.Title
	}
	if upd.Content != nil {
		a.Content = *upd.Content
	}
	a.UpdatedAt = s.now()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update announcement: %w", err)
	}
	return a, nil
}

func (s *announcementService) Delete(ctx context.Context, id, actingAccountID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.loadOwned(ctx, id, actingAccountID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
