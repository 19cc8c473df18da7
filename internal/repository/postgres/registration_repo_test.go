package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/domain"
)

var registrationViewColumns = []string{
	"id", "event_id", "account_id", "participant_name", "remark", "registered_at",
	"title", "start_time", "end_time", "location", "display_name", "phone",
}

func newRegistration() *domain.Registration {
	return &domain.Registration{
		EventID:         "ev-1",
		AccountID:       "acc-1",
		ParticipantName: "Somchai",
		RegisteredAt:    t0,
	}
}

func expectLockEvent(mock sqlmock.Sqlmock, limited bool, max any) {
	mock.ExpectQuery(`SELECT is_capacity_limited, max_participants\s+FROM events\s+WHERE id = \$1\s+FOR UPDATE`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_capacity_limited", "max_participants"}).AddRow(limited, max))
}

func expectLiveCount(mock sqlmock.Sqlmock, n int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`)).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestRegistrationRepository_CreateAndIncrement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mock   func(mock sqlmock.Sqlmock)
		errIs  error
		wantID string
	}{
		{
			name: "success limited with room",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLockEvent(mock, true, 2)
				expectLiveCount(mock, 1)
				mock.ExpectQuery(`INSERT INTO event_registrations`).
					WithArgs("ev-1", "acc-1", "Somchai", nil, t0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-1"))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET current_participants = current_participants + 1 WHERE id = $1`)).
					WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantID: "reg-1",
		},
		{
			name: "success unlimited",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLockEvent(mock, false, nil)
				expectLiveCount(mock, 5000)
				mock.ExpectQuery(`INSERT INTO event_registrations`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-2"))
				mock.ExpectExec(`current_participants \+ 1`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantID: "reg-2",
		},
		{
			name: "full at lock time",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLockEvent(mock, true, 2)
				expectLiveCount(mock, 2)
				mock.ExpectRollback()
			},
			errIs: domain.ErrEventFull,
		},
		{
			name: "event vanished",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).WithArgs("ev-1").WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			errIs: domain.ErrNotFound,
		},
		{
			name: "unique violation maps to duplicate",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLockEvent(mock, false, nil)
				expectLiveCount(mock, 1)
				mock.ExpectQuery(`INSERT INTO event_registrations`).
					WillReturnError(&pq.Error{Code: "23505"})
				mock.ExpectRollback()
			},
			errIs: domain.ErrDuplicateRegistration,
		},
		{
			name: "increment failure rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLockEvent(mock, false, nil)
				expectLiveCount(mock, 0)
				mock.ExpectQuery(`INSERT INTO event_registrations`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-3"))
				mock.ExpectExec(`current_participants \+ 1`).WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			errIs: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			reg := newRegistration()
			err = NewRegistrationRepository(db).CreateAndIncrement(ctx, reg)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, reg.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_DeleteAndDecrement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		mock        func(mock sqlmock.Sqlmock)
		errIs       error
		errContains string
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`DELETE FROM event_registrations\s+WHERE id = \$1 AND account_id = \$2\s+RETURNING event_id`).
					WithArgs("reg-1", "acc-1").
					WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("ev-1"))
				mock.ExpectExec(regexp.QuoteMeta(`GREATEST(current_participants - 1, 0)`)).
					WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "not owned or missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`DELETE FROM event_registrations`).
					WithArgs("reg-1", "acc-1").
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			errIs: domain.ErrNotFound,
		},
		{
			name: "begin fails",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			errContains: "begin transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewRegistrationRepository(db).DeleteAndDecrement(ctx, "reg-1", "acc-1")
			switch {
			case tt.errIs != nil:
				assert.ErrorIs(t, err, tt.errIs)
			case tt.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			default:
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_ReconcileCount(t *testing.T) {
	ctx := context.Background()

	t.Run("locks then counts then writes", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT 1 FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		expectLiveCount(mock, 4)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET current_participants = $1 WHERE id = $2`)).
			WithArgs(4, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := NewRegistrationRepository(db).ReconcileCount(ctx, "ev-1")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs("ev-x").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err = NewRegistrationRepository(db).ReconcileCount(ctx, "ev-x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		mock.ExpectQuery(`SELECT COUNT`).WithArgs("ev-1").WillReturnError(errors.New("conn reset"))
		mock.ExpectRollback()

		_, err = NewRegistrationRepository(db).ReconcileCount(ctx, "ev-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "count registrations")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_GetByEventAccountAndName(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`WHERE event_id = \$1 AND account_id = \$2 AND participant_name = \$3`).
			WithArgs("ev-1", "acc-1", "Somchai").
			WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "account_id", "participant_name", "remark", "registered_at"}).
				AddRow("reg-1", "ev-1", "acc-1", "Somchai", "vegetarian", t0))

		got, err := NewRegistrationRepository(db).GetByEventAccountAndName(ctx, "ev-1", "acc-1", "Somchai")
		require.NoError(t, err)
		assert.Equal(t, &domain.Registration{
			ID: "reg-1", EventID: "ev-1", AccountID: "acc-1", ParticipantName: "Somchai",
			Remark: strPtr("vegetarian"), RegisteredAt: t0,
		}, got)
	})

	t.Run("absent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`FROM event_registrations`).WillReturnError(sql.ErrNoRows)

		_, err = NewRegistrationRepository(db).GetByEventAccountAndName(ctx, "ev-1", "acc-1", "Nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRegistrationRepository_ListByEventID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	later := t0.Add(time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`)).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`JOIN accounts a ON a.id = r.account_id\s+WHERE r.event_id = \$1 ORDER BY r.registered_at ASC, r.id LIMIT \$2 OFFSET \$3`).
		WithArgs("ev-1", 10, 0).
		WillReturnRows(sqlmock.NewRows(registrationViewColumns).
			AddRow("reg-1", "ev-1", "acc-1", "A", nil, t0, "Retreat", evStart, evEnd, "Hall", "Owner", "0811111111").
			AddRow("reg-2", "ev-1", "acc-2", "B", nil, later, "Retreat", evStart, evEnd, nil, "Other", "0822222222"))

	got, total, err := NewRegistrationRepository(db).ListByEventID(context.Background(), "ev-1", domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ParticipantName)
	assert.Equal(t, strPtr("Hall"), got[0].EventLocation)
	assert.Nil(t, got[1].EventLocation)
	assert.Equal(t, "Other", got[1].AccountDisplayName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_Counts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM event_registrations`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE registered_at >= $1`)).
		WithArgs(t0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewRegistrationRepository(db)
	all, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, all)
	today, err := repo.CountSince(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, today)
	require.NoError(t, mock.ExpectationsWereMet())
}
