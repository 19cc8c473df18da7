package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventsignup/internal/domain"
	"eventsignup/internal/policy"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

const registrationColumns = `id, event_id, account_id, participant_name, remark, registered_at`

const registrationViewSelect = `
	SELECT r.id, r.event_id, r.account_id, r.participant_name, r.remark, r.registered_at,
		e.title, e.start_time, e.end_time, e.location, a.display_name, a.phone
	FROM event_registrations r
	JOIN events e ON e.id = r.event_id
	JOIN accounts a ON a.id = r.account_id
`

func scanRegistration(s rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var remark sql.NullString
	if err := s.Scan(&reg.ID, &reg.EventID, &reg.AccountID, &reg.ParticipantName, &remark, &reg.RegisteredAt); err != nil {
		return nil, err
	}
	if remark.Valid {
		reg.Remark = &remark.String
	}
	return reg, nil
}

func scanRegistrationView(s rowScanner) (*domain.RegistrationView, error) {
	v := &domain.RegistrationView{}
	var remark, location sql.NullString
	err := s.Scan(
		&v.ID, &v.EventID, &v.AccountID, &v.ParticipantName, &remark, &v.RegisteredAt,
		&v.EventTitle, &v.EventStartTime, &v.EventEndTime, &location, &v.AccountDisplayName, &v.AccountPhone,
	)
	if err != nil {
		return nil, err
	}
	if remark.Valid {
		v.Remark = &remark.String
	}
	if location.Valid {
		v.EventLocation = &location.String
	}
	return v, nil
}

func scanRegistrationViews(rows *sql.Rows) ([]*domain.RegistrationView, error) {
	defer rows.Close()
	views := make([]*domain.RegistrationView, 0)
	for rows.Next() {
		v, err := scanRegistrationView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetViewByID(ctx context.Context, id string) (*domain.RegistrationView, error) {
	v, err := scanRegistrationView(r.DB.QueryRowContext(ctx, registrationViewSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *registrationRepository) GetByEventAccountAndName(ctx context.Context, eventID, accountID, participantName string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1 AND account_id = $2 AND participant_name = $3
	`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, accountID, participantName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// CreateAndIncrement locks the event row, re-checks capacity against the live count, inserts the
// registration and bumps the counter. Concurrent attempts on the same event serialize on the lock.
func (r *registrationRepository) CreateAndIncrement(ctx context.Context, reg *domain.Registration) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		event := &domain.Event{ID: reg.EventID}
		var maxNull sql.NullInt64
		err := tx.QueryRowContext(ctx, `
			SELECT is_capacity_limited, max_participants
			FROM events
			WHERE id = $1
			FOR UPDATE
		`, reg.EventID).Scan(&event.IsCapacityLimited, &maxNull)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		if maxNull.Valid {
			m := int(maxNull.Int64)
			event.MaxParticipants = &m
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, reg.EventID).Scan(&count); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if !policy.CanAccept(event, count) {
			return domain.ErrEventFull
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO event_registrations (event_id, account_id, participant_name, remark, registered_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, reg.EventID, reg.AccountID, reg.ParticipantName, reg.Remark, reg.RegisteredAt).Scan(&reg.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateRegistration
			}
			return fmt.Errorf("insert registration: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE events SET current_participants = current_participants + 1 WHERE id = $1`, reg.EventID); err != nil {
			return fmt.Errorf("increment participants: %w", err)
		}
		return nil
	})
}

// DeleteAndDecrement removes the registration only when accountID owns it, then decrements the counter
// without letting it go negative.
func (r *registrationRepository) DeleteAndDecrement(ctx context.Context, id, accountID string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var eventID string
		err := tx.QueryRowContext(ctx, `
			DELETE FROM event_registrations
			WHERE id = $1 AND account_id = $2
			RETURNING event_id
		`, id, accountID).Scan(&eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("delete registration: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET current_participants = GREATEST(current_participants - 1, 0)
			WHERE id = $1
		`, eventID)
		if err != nil {
			return fmt.Errorf("decrement participants: %w", err)
		}
		return nil
	})
}

// ReconcileCount locks the event row before counting, so the count sees every registration
// committed ahead of it and no concurrent increment or decrement can be overwritten.
func (r *registrationRepository) ReconcileCount(ctx context.Context, eventID string) (int, error) {
	var n int
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, eventID).Scan(&n); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE events SET current_participants = $1 WHERE id = $2`, n, eventID); err != nil {
			return fmt.Errorf("update participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *registrationRepository) listViews(ctx context.Context, countQuery, where, orderBy string, arg any, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := registrationViewSelect + where + orderBy + ` LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, arg, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	views, err := scanRegistrationViews(rows)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListByEventID returns the event's registrations in registration order.
func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	return r.listViews(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`,
		` WHERE r.event_id = $1`, ` ORDER BY r.registered_at ASC, r.id`,
		eventID, p)
}

// ListByAccountID returns everything the account registered, newest first.
func (r *registrationRepository) ListByAccountID(ctx context.Context, accountID string, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	return r.listViews(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE account_id = $1`,
		` WHERE r.account_id = $1`, ` ORDER BY r.registered_at DESC, r.id`,
		accountID, p)
}

func (r *registrationRepository) Search(ctx context.Context, term string, p domain.PaginationParams) ([]*domain.RegistrationView, int, error) {
	return r.listViews(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE participant_name ILIKE $1`,
		` WHERE r.participant_name ILIKE $1`, ` ORDER BY r.registered_at DESC, r.id`,
		likePattern(term), p)
}

func (r *registrationRepository) ExportByEventID(ctx context.Context, eventID string) ([]*domain.RegistrationView, error) {
	rows, err := r.DB.QueryContext(ctx, registrationViewSelect+` WHERE r.event_id = $1 ORDER BY r.registered_at ASC, r.id`, eventID)
	if err != nil {
		return nil, err
	}
	return scanRegistrationViews(rows)
}

func (r *registrationRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations`).Scan(&n)
	return n, err
}

func (r *registrationRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE registered_at >= $1`, since).Scan(&n)
	return n, err
}
