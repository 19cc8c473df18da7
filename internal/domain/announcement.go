package domain

import (
	"context"
	"strings"
	"time"
)

// Announcement is a titled notice published by an account.
// swagger:model Announcement
type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate trims and checks title and content.
func (a *Announcement) Validate() error {
	v := &ValidationError{}
	a.Title = strings.TrimSpace(a.Title)
	a.Content = strings.TrimSpace(a.Content)
	if a.Title == "" {
		v.Add("title", "is required")
	} else if len([]rune(a.Title)) > 200 {
		v.Add("title", "must be at most 200 characters")
	}
	if a.Content == "" {
		v.Add("content", "is required")
	}
	if a.OwnerID == "" {
		v.Add("owner_id", "is required")
	}
	if v.HasErrors() {
		return v
	}
	return nil
}

// AnnouncementUpdate holds the fields an owner may change. Nil leaves the field untouched.
type AnnouncementUpdate struct {
	Title   *string
	Content *string
}

// AnnouncementRepository defines storage for announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *Announcement) error
	GetByID(ctx context.Context, id string) (*Announcement, error)
	Update(ctx context.Context, a *Announcement) error
	Delete(ctx context.Context, id string) error
	// List returns announcements newest first; an empty ownerID lists all.
	List(ctx context.Context, ownerID string, p PaginationParams) ([]*Announcement, int, error)
	Search(ctx context.Context, term string, p PaginationParams) ([]*Announcement, int, error)
}

// AnnouncementService defines announcement management.
type AnnouncementService interface {
	Create(ctx context.Context, a *Announcement) error
	GetByID(ctx context.Context, id string) (*Announcement, error)
	List(ctx context.Context, ownerID string, p PaginationParams) (Page[*Announcement], error)
	Search(ctx context.Context, term string, p PaginationParams) (Page[*Announcement], error)
	Update(ctx context.Context, id, actingAccountID string, upd AnnouncementUpdate) (*Announcement, error)
	Delete(ctx context.Context, id, actingAccountID string) error
}
