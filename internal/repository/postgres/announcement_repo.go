package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventsignup/internal/domain"
)

type announcementRepository struct {
	DB *sql.DB
}

func NewAnnouncementRepository(db *sql.DB) domain.AnnouncementRepository {
	return &announcementRepository{DB: db}
}

const announcementColumns = `id, title, content, owner_id, created_at, updated_at`

func scanAnnouncements(rows *sql.Rows) ([]*domain.Announcement, error) {
	defer rows.Close()
	items := make([]*domain.Announcement, 0)
	for rows.Next() {
		a := &domain.Announcement{}
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *announcementRepository) Create(ctx context.Context, a *domain.Announcement) error {
	query := `
		INSERT INTO announcements (title, content, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, a.Title, a.Content, a.OwnerID, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
}

func (r *announcementRepository) GetByID(ctx context.Context, id string) (*domain.Announcement, error) {
	a := &domain.Announcement{}
	err := r.DB.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id).
		Scan(&a.ID, &a.Title, &a.Content, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *announcementRepository) Update(ctx context.Context, a *domain.Announcement) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE announcements SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
		a.Title, a.Content, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *announcementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *announcementRepository) List(ctx context.Context, ownerID string, p domain.PaginationParams) ([]*domain.Announcement, int, error) {
	var total int
	var rows *sql.Rows
	var err error
	if ownerID == "" {
		if err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements`).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = r.DB.QueryContext(ctx,
			`SELECT `+announcementColumns+` FROM announcements ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
			p.PageSize, p.Offset())
	} else {
		if err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = r.DB.QueryContext(ctx,
			`SELECT `+announcementColumns+` FROM announcements WHERE owner_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
			ownerID, p.PageSize, p.Offset())
	}
	if err != nil {
		return nil, 0, err
	}
	items, err := scanAnnouncements(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *announcementRepository) Search(ctx context.Context, term string, p domain.PaginationParams) ([]*domain.Announcement, int, error) {
	pattern := likePattern(term)
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE title ILIKE $1 OR content ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE title ILIKE $1 OR content ILIKE $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		pattern, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	items, err := scanAnnouncements(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
