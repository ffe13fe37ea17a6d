package ledgerrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

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

func TestRepository_Append(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	t.Run("Append earn entry", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO ledger_entries (user_id, type, points_delta, balance_after, meta)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`)).
			WithArgs(1, domain.EntryEarn, int64(48), int64(1048), map[string]any{"session_id": "s1"}).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(17), now))

		entry, err := repo.Append(context.Background(), &domain.LedgerEntry{
			UserID:       1,
			Type:         domain.EntryEarn,
			PointsDelta:  48,
			BalanceAfter: 1048,
			Meta:         map[string]any{"session_id": "s1"},
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(17), entry.ID)
		assert.Equal(t, now, entry.CreatedAt)
	})

	t.Run("Nil meta is written as an empty object", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO ledger_entries (user_id, type, points_delta, balance_after, meta)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`)).
			WithArgs(1, domain.EntryAdminAdjust, int64(-100), int64(900), map[string]any{}).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(18), now))

		entry, err := repo.Append(context.Background(), &domain.LedgerEntry{
			UserID:       1,
			Type:         domain.EntryAdminAdjust,
			PointsDelta:  -100,
			BalanceAfter: 900,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(18), entry.ID)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO ledger_entries (user_id, type, points_delta, balance_after, meta)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`)).
			WithArgs(1, domain.EntryEarn, int64(48), int64(1048), map[string]any{}).
			WillReturnError(errors.New("database error"))

		_, err := repo.Append(context.Background(), &domain.LedgerEntry{
			UserID:       1,
			Type:         domain.EntryEarn,
			PointsDelta:  48,
			BalanceAfter: 1048,
		})
		assert.Error(t, err)
	})
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	t.Run("Entries returned newest first", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "user_id", "type", "points_delta", "balance_after", "meta", "created_at"}).
			AddRow(int64(18), 1, domain.EntryWithdrawLock, int64(-20000), int64(30000), map[string]any{}, now).
			AddRow(int64(17), 1, domain.EntryEarn, int64(48), int64(50000), map[string]any{}, now.Add(-time.Hour))
		mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT id, user_id, type, points_delta, balance_after, meta, created_at
			FROM ledger_entries
			WHERE user_id = $1
			ORDER BY id DESC
		`)).
			WithArgs(1).
			WillReturnRows(rows)

		entries, err := repo.ListByUser(context.Background(), 1)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, int64(18), entries[0].ID)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT id, user_id, type, points_delta, balance_after, meta, created_at
			FROM ledger_entries
			WHERE user_id = $1
			ORDER BY id DESC
		`)).
			WithArgs(1).
			WillReturnError(errors.New("database error"))

		_, err := repo.ListByUser(context.Background(), 1)
		assert.Error(t, err)
	})
}

func TestRepository_SumDeltas(t *testing.T) {
	repo, mock := NewMock(t)

	t.Run("Sum over entries", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT COALESCE(SUM(points_delta), 0)
			FROM ledger_entries
			WHERE user_id = $1
		`)).
			WithArgs(1).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(30048)))

		sum, err := repo.SumDeltas(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(30048), sum)
	})

	t.Run("Empty ledger sums to zero", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT COALESCE(SUM(points_delta), 0)
			FROM ledger_entries
			WHERE user_id = $1
		`)).
			WithArgs(2).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

		sum, err := repo.SumDeltas(context.Background(), 2)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), sum)
	})
}
