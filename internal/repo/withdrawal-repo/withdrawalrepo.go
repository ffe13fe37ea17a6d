package withdrawalrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"go.uber.org/zap"
)

const withdrawColumns = `id, user_id, amount_currency, points_cost, status, destination, admin_note, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanRequest(row pgx.Row) (*domain.WithdrawRequest, error) {
	var wr domain.WithdrawRequest
	err := row.Scan(&wr.ID, &wr.UserID, &wr.AmountCurrency, &wr.PointsCost, &wr.Status,
		&wr.Destination, &wr.AdminNote, &wr.CreatedAt, &wr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &wr, nil
}

func (r *Repository) Create(ctx context.Context, request *domain.WithdrawRequest) (*domain.WithdrawRequest, error) {
	query := `
		INSERT INTO withdraw_requests (user_id, amount_currency, points_cost, status, destination)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, request.UserID, request.AmountCurrency, request.PointsCost,
		request.Status, request.Destination).
		Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		if !pg.IsUniqueViolation(err) {
			zap.L().Error("can't save withdraw request", zap.Error(err))
		}
		return nil, err
	}
	return request, nil
}

func (r *Repository) FindByID(ctx context.Context, requestID int64) (*domain.WithdrawRequest, error) {
	query := `SELECT ` + withdrawColumns + ` FROM withdraw_requests WHERE id = $1`
	request, err := scanRequest(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find withdraw request", zap.Error(err))
		return nil, err
	}
	return request, nil
}

func (r *Repository) FindPendingByUser(ctx context.Context, userID int) (*domain.WithdrawRequest, error) {
	query := `SELECT ` + withdrawColumns + ` FROM withdraw_requests WHERE user_id = $1 AND status = 'PENDING'`
	request, err := scanRequest(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find pending withdraw request", zap.Error(err))
		return nil, err
	}
	return request, nil
}

// SetStatus performs a guarded transition from one status to another.
// Terminal states never match fromStatus, so a repeated or concurrent
// decision cannot apply twice.
func (r *Repository) SetStatus(ctx context.Context, requestID int64, fromStatus, toStatus, adminNote string) (*domain.WithdrawRequest, error) {
	query := `
		UPDATE withdraw_requests
		SET status = $1, admin_note = $2, updated_at = now()
		WHERE id = $3 AND status = $4
		RETURNING ` + withdrawColumns
	request, err := scanRequest(r.db.QueryRow(ctx, query, toStatus, adminNote, requestID, fromStatus))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't update withdraw request status", zap.Error(err))
		return nil, err
	}
	return request, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.WithdrawRequest, error) {
	query := `
		SELECT ` + withdrawColumns + `
		FROM withdraw_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *Repository) ListByStatus(ctx context.Context, status string) ([]domain.WithdrawRequest, error) {
	query := `
		SELECT ` + withdrawColumns + `
		FROM withdraw_requests
		WHERE status = $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, status)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]domain.WithdrawRequest, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		zap.L().Error("can't get withdraw requests", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var requests []domain.WithdrawRequest
	for rows.Next() {
		var wr domain.WithdrawRequest
		err := rows.Scan(&wr.ID, &wr.UserID, &wr.AmountCurrency, &wr.PointsCost, &wr.Status,
			&wr.Destination, &wr.AdminNote, &wr.CreatedAt, &wr.UpdatedAt)
		if err != nil {
			zap.L().Error("can't scan withdraw request row", zap.Error(err))
			return nil, err
		}
		requests = append(requests, wr)
	}
	return requests, nil
}
