package accountrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/playvault/playvault/internal/domain"
	"github.com/stretchr/testify/assert"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func accountRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "login", "password_hash", "is_admin", "blocked",
		"point_balance", "points_earned_today", "last_accrual_at", "created_at"})
}

func TestRepository_FindByLogin(t *testing.T) {
	repo, mock := NewMock(t)
	createdAt := time.Now()

	tests := []struct {
		name      string
		login     string
		mockSetup func()
		expectErr bool
		result    *domain.UserAccount
	}{
		{
			name:  "Account found",
			login: "user1",
			mockSetup: func() {
				rows := accountRows().
					AddRow(1, "user1", "hashed_password", false, false, int64(50000), int64(120), nil, createdAt)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at FROM users WHERE login = $1`)).
					WithArgs("user1").
					WillReturnRows(rows)
			},
			result: &domain.UserAccount{
				ID:                1,
				Login:             "user1",
				PasswordHash:      "hashed_password",
				PointBalance:      50000,
				PointsEarnedToday: 120,
				CreatedAt:         createdAt,
			},
		},
		{
			name:  "Account not found",
			login: "nobody",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at FROM users WHERE login = $1`)).
					WithArgs("nobody").
					WillReturnError(pgx.ErrNoRows)
			},
			result: nil,
		},
		{
			name:  "Database error",
			login: "user1",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at FROM users WHERE login = $1`)).
					WithArgs("user1").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByLogin(context.Background(), tt.login)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.result, result)
			}
		})
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)

	t.Run("Create account successfully", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO users (login, password_hash, is_admin)
			VALUES ($1, $2, $3)
			RETURNING id
		`)).
			WithArgs("user1", "hashed_password", false).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(1))

		user, err := repo.Create(context.Background(), &domain.UserAccount{
			Login:        "user1",
			PasswordHash: "hashed_password",
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, user.ID)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO users (login, password_hash, is_admin)
			VALUES ($1, $2, $3)
			RETURNING id
		`)).
			WithArgs("user1", "hashed_password", false).
			WillReturnError(errors.New("database error"))

		_, err := repo.Create(context.Background(), &domain.UserAccount{
			Login:        "user1",
			PasswordHash: "hashed_password",
		})
		assert.Error(t, err)
	})
}

func TestRepository_ApplyAccrual(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	t.Run("Accrual updates balance and daily counter", func(t *testing.T) {
		rows := accountRows().
			AddRow(1, "user1", "hash", false, false, int64(1048), int64(48), &now, now)
		mock.ExpectQuery(regexp.QuoteMeta(`
			UPDATE users
			SET point_balance = point_balance + $1,
			    points_earned_today = $2,
			    last_accrual_at = $3
			WHERE id = $4
			RETURNING id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at`)).
			WithArgs(int64(48), int64(48), now, 1).
			WillReturnRows(rows)

		user, err := repo.ApplyAccrual(context.Background(), 1, 48, 48, now)
		assert.NoError(t, err)
		assert.Equal(t, int64(1048), user.PointBalance)
		assert.Equal(t, int64(48), user.PointsEarnedToday)
	})
}

func TestRepository_ApplyDelta(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	t.Run("Negative delta locks points", func(t *testing.T) {
		rows := accountRows().
			AddRow(1, "user1", "hash", false, false, int64(30000), int64(0), nil, now)
		mock.ExpectQuery(regexp.QuoteMeta(`
			UPDATE users
			SET point_balance = point_balance + $1
			WHERE id = $2
			RETURNING id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at`)).
			WithArgs(int64(-20000), 1).
			WillReturnRows(rows)

		user, err := repo.ApplyDelta(context.Background(), 1, -20000)
		assert.NoError(t, err)
		assert.Equal(t, int64(30000), user.PointBalance)
	})

	t.Run("Check constraint rejects overdraft", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			UPDATE users
			SET point_balance = point_balance + $1
			WHERE id = $2
			RETURNING id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at`)).
			WithArgs(int64(-90000), 1).
			WillReturnError(errors.New("violates check constraint \"users_point_balance_check\""))

		_, err := repo.ApplyDelta(context.Background(), 1, -90000)
		assert.Error(t, err)
	})
}

func TestRepository_SetBlocked(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	t.Run("Block account", func(t *testing.T) {
		rows := accountRows().
			AddRow(1, "user1", "hash", false, true, int64(50000), int64(0), nil, now)
		mock.ExpectQuery(regexp.QuoteMeta(`
			UPDATE users
			SET blocked = $1
			WHERE id = $2
			RETURNING id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at`)).
			WithArgs(true, 1).
			WillReturnRows(rows)

		user, err := repo.SetBlocked(context.Background(), 1, true)
		assert.NoError(t, err)
		assert.True(t, user.Blocked)
	})

	t.Run("Unknown account returns nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			UPDATE users
			SET blocked = $1
			WHERE id = $2
			RETURNING id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at`)).
			WithArgs(true, 99).
			WillReturnError(pgx.ErrNoRows)

		user, err := repo.SetBlocked(context.Background(), 99, true)
		assert.NoError(t, err)
		assert.Nil(t, user)
	})
}
