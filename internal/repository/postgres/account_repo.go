package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventsignup/internal/domain"
)

type accountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) domain.AccountRepository {
	return &accountRepository{DB: db}
}

const accountColumns = `id, identity_key, display_name, phone, birth_date, gender, is_admin, avatar_url, created_at`

func scanAccount(s rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	var gender string
	var avatar sql.NullString
	if err := s.Scan(&a.ID, &a.IdentityKey, &a.DisplayName, &a.Phone, &a.BirthDate, &gender, &a.IsAdmin, &avatar, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Gender = domain.Gender(gender)
	if avatar.Valid {
		a.AvatarURL = &avatar.String
	}
	return a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (identity_key, display_name, phone, birth_date, gender, is_admin, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		a.IdentityKey, a.DisplayName, a.Phone, a.BirthDate, string(a.Gender), a.IsAdmin, a.AvatarURL, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) GetByIdentityKey(ctx context.Context, identityKey string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identity_key = $1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, identityKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) Update(ctx context.Context, a *domain.Account) error {
	query := `
		UPDATE accounts
		SET display_name = $1, phone = $2, birth_date = $3, gender = $4, avatar_url = $5
		WHERE id = $6
	`
	result, err := r.DB.ExecContext(ctx, query, a.DisplayName, a.Phone, a.BirthDate, string(a.Gender), a.AvatarURL, a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAccount
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Account, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	return accounts, total, rows.Err()
}

// Delete removes the account; its events, announcements and registrations cascade.
// Counters of other owners' events lose the account's registrations in the same transaction.
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE events e
			SET current_participants = GREATEST(e.current_participants - sub.n, 0)
			FROM (
				SELECT event_id, COUNT(*) AS n
				FROM event_registrations
				WHERE account_id = $1
				GROUP BY event_id
			) sub
			WHERE e.id = sub.event_id
		`, id)
		if err != nil {
			return fmt.Errorf("release account registrations: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
