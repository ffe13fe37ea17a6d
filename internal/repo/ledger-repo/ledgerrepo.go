package ledgerrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Append writes one immutable entry. Services call it in the same
// transaction as the balance mutation it justifies; an entry without its
// mutation (or vice versa) must be impossible.
func (r *Repository) Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	query := `
		INSERT INTO ledger_entries (user_id, type, points_delta, balance_after, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	err := r.db.QueryRow(ctx, query, entry.UserID, entry.Type, entry.PointsDelta, entry.BalanceAfter, meta).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		zap.L().Error("can't append ledger entry", zap.Error(err))
		return nil, err
	}
	return entry, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, user_id, type, points_delta, balance_after, meta, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get ledger entries", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.PointsDelta, &e.BalanceAfter, &e.Meta, &e.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan ledger row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SumDeltas replays the ledger for audit: the result must always equal
// the account's point_balance.
func (r *Repository) SumDeltas(ctx context.Context, userID int) (int64, error) {
	query := `
		SELECT COALESCE(SUM(points_delta), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`
	var sum int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&sum)
	if err != nil && err != pgx.ErrNoRows {
		zap.L().Error("can't sum ledger deltas", zap.Error(err))
		return 0, err
	}
	return sum, nil
}
