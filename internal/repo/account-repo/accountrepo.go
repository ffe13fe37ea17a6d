package accountrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"go.uber.org/zap"
)

const accountColumns = `id, login, password_hash, is_admin, blocked, point_balance, points_earned_today, last_accrual_at, created_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) scanAccount(row pgx.Row) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.IsAdmin, &u.Blocked,
		&u.PointBalance, &u.PointsEarnedToday, &u.LastAccrualAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) FindByLogin(ctx context.Context, login string) (*domain.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE login = $1`
	user, err := r.scanAccount(r.db.QueryRow(ctx, query, login))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find user by login", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, userID int) (*domain.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	user, err := r.scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find user by id", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *Repository) Create(ctx context.Context, user *domain.UserAccount) (*domain.UserAccount, error) {
	query := `
		INSERT INTO users (login, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, user.Login, user.PasswordHash, user.IsAdmin).Scan(&user.ID)
	if err != nil {
		zap.L().Error("can't save user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ApplyAccrual credits an award and advances the daily counter in one
// statement. Callers must run it inside a transaction that also appends
// the earn ledger entry.
func (r *Repository) ApplyAccrual(ctx context.Context, userID int, award, earnedToday int64, at time.Time) (*domain.UserAccount, error) {
	query := `
		UPDATE users
		SET point_balance = point_balance + $1,
		    points_earned_today = $2,
		    last_accrual_at = $3
		WHERE id = $4
		RETURNING ` + accountColumns
	user, err := r.scanAccount(r.db.QueryRow(ctx, query, award, earnedToday, at, userID))
	if err != nil {
		zap.L().Error("can't apply accrual", zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ApplyDelta moves the spendable balance for withdrawal lock/unlock. The
// point_balance >= 0 check constraint rejects overdrafts at the store.
func (r *Repository) ApplyDelta(ctx context.Context, userID int, delta int64) (*domain.UserAccount, error) {
	query := `
		UPDATE users
		SET point_balance = point_balance + $1
		WHERE id = $2
		RETURNING ` + accountColumns
	user, err := r.scanAccount(r.db.QueryRow(ctx, query, delta, userID))
	if err != nil {
		zap.L().Error("can't apply balance delta", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *Repository) SetBlocked(ctx context.Context, userID int, blocked bool) (*domain.UserAccount, error) {
	query := `
		UPDATE users
		SET blocked = $1
		WHERE id = $2
		RETURNING ` + accountColumns
	user, err := r.scanAccount(r.db.QueryRow(ctx, query, blocked, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't set blocked flag", zap.Error(err))
		return nil, err
	}
	return user, nil
}
