package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventsignup/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, title, description, start_time, end_time, registration_deadline, location,
	is_capacity_limited, max_participants, current_participants, owner_id, created_at, updated_at`

func scanEvent(s rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, locNull sql.NullString
	var maxNull sql.NullInt64
	err := s.Scan(
		&e.ID, &e.Title, &descNull, &e.StartTime, &e.EndTime, &e.RegistrationDeadline, &locNull,
		&e.IsCapacityLimited, &maxNull, &e.CurrentParticipants, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if locNull.Valid {
		e.Location = &locNull.String
	}
	if maxNull.Valid {
		m := int(maxNull.Int64)
		e.MaxParticipants = &m
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Create inserts e with a zero participant counter.
func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, start_time, end_time, registration_deadline, location,
			is_capacity_limited, max_participants, current_participants, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)
		RETURNING id
	`
	e.CurrentParticipants = 0
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartTime, e.EndTime, e.RegistrationDeadline, e.Location,
		e.IsCapacityLimited, e.MaxParticipants, e.OwnerID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update writes every owner-editable column. The row is locked while the new max is checked
// against the live registration count, so a concurrent registration cannot slip past a shrinking limit.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var cached int
		err := tx.QueryRowContext(ctx, `SELECT current_participants FROM events WHERE id = $1 FOR UPDATE`, e.ID).Scan(&cached)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		var live int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, e.ID).Scan(&live); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if e.IsCapacityLimited && e.MaxParticipants != nil && live > *e.MaxParticipants {
			return domain.NewValidationError("max_participants", "must not be below the current participant count")
		}
		query := `
			UPDATE events
			SET title = $1, description = $2, start_time = $3, end_time = $4, registration_deadline = $5,
				location = $6, is_capacity_limited = $7, max_participants = $8, updated_at = $9
			WHERE id = $10
		`
		_, err = tx.ExecContext(ctx, query,
			e.Title, e.Description, e.StartTime, e.EndTime, e.RegistrationDeadline,
			e.Location, e.IsCapacityLimited, e.MaxParticipants, e.UpdatedAt, e.ID,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		e.CurrentParticipants = cached
		return nil
	})
}

// Delete removes the event; its registrations cascade.
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List orders by start time. RegistrationOpen filters on the deadline relative to f.Now.
func (r *eventRepository) List(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]*domain.Event, int, error) {
	where := ""
	args := []any{}
	if f.RegistrationOpen != nil {
		args = append(args, f.Now)
		if *f.RegistrationOpen {
			where = ` WHERE registration_deadline > $1`
		} else {
			where = ` WHERE registration_deadline <= $1`
		}
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY start_time ASC, id LIMIT $%d OFFSET $%d`, eventColumns, where, n+1, n+2)
	args = append(args, p.PageSize, p.Offset())
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Search matches term case-insensitively against title, description and location.
func (r *eventRepository) Search(ctx context.Context, term string, p domain.PaginationParams) ([]*domain.Event, int, error) {
	where := ` WHERE title ILIKE $1 OR description ILIKE $1 OR location ILIKE $1`
	pattern := likePattern(term)
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY start_time ASC, id LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, pattern, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) Stats(ctx context.Context, now time.Time) (*domain.EventStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE start_time > $1),
			COUNT(*) FILTER (WHERE start_time <= $1 AND end_time > $1),
			COUNT(*) FILTER (WHERE registration_deadline > $1)
		FROM events
	`
	s := &domain.EventStats{}
	if err := r.DB.QueryRowContext(ctx, query, now).Scan(&s.Total, &s.Upcoming, &s.Ongoing, &s.OpenRegistration); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *eventRepository) StatsByOwner(ctx context.Context, ownerID string, now time.Time) (*domain.OwnerEventStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE start_time > $2)
		FROM events
		WHERE owner_id = $1
	`
	s := &domain.OwnerEventStats{}
	if err := r.DB.QueryRowContext(ctx, query, ownerID, now).Scan(&s.Total, &s.Upcoming); err != nil {
		return nil, err
	}
	return s, nil
}
