package sessionrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"go.uber.org/zap"
)

const sessionColumns = `id, user_id, game_id, status, started_at, last_heartbeat_at, heartbeat_count, approved_minutes`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanSession(row pgx.Row) (*domain.PlaySession, error) {
	var s domain.PlaySession
	err := row.Scan(&s.ID, &s.UserID, &s.GameID, &s.Status, &s.StartedAt,
		&s.LastHeartbeatAt, &s.HeartbeatCount, &s.ApprovedMinutes)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Create(ctx context.Context, session *domain.PlaySession) error {
	query := `
		INSERT INTO play_sessions (id, user_id, game_id, status, started_at, last_heartbeat_at, heartbeat_count, approved_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, session.ID, session.UserID, session.GameID, session.Status,
		session.StartedAt, session.LastHeartbeatAt, session.HeartbeatCount, session.ApprovedMinutes)
	if err != nil {
		if !pg.IsUniqueViolation(err) {
			zap.L().Error("can't save session", zap.Error(err))
		}
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, sessionID string) (*domain.PlaySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM play_sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find session", zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (r *Repository) FindOpenByUser(ctx context.Context, userID int) (*domain.PlaySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM play_sessions WHERE user_id = $1 AND status = 'OPEN'`
	session, err := scanSession(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find open session", zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (r *Repository) UpdateProgress(ctx context.Context, sessionID string, approvedMinutes, heartbeatCount int, at time.Time) error {
	query := `
		UPDATE play_sessions
		SET approved_minutes = $1, heartbeat_count = $2, last_heartbeat_at = $3
		WHERE id = $4 AND status = 'OPEN'
	`
	_, err := r.db.Exec(ctx, query, approvedMinutes, heartbeatCount, at, sessionID)
	if err != nil {
		zap.L().Error("can't update session progress", zap.Error(err))
		return err
	}
	return nil
}

// SetStatus flips OPEN to a terminal status. The status guard in the
// WHERE clause makes the transition a one-way gate: it reports whether
// this call actually performed it.
func (r *Repository) SetStatus(ctx context.Context, sessionID, status string) (bool, error) {
	query := `
		UPDATE play_sessions
		SET status = $1
		WHERE id = $2 AND status = 'OPEN'
	`
	tag, err := r.db.Exec(ctx, query, status, sessionID)
	if err != nil {
		zap.L().Error("can't update session status", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) FindIdleOpen(ctx context.Context, cutoff time.Time, limit uint32) ([]domain.PlaySession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM play_sessions
		WHERE status = 'OPEN' AND last_heartbeat_at < $1
		ORDER BY last_heartbeat_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, cutoff, int(limit))
	if err != nil {
		zap.L().Error("can't get idle sessions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.PlaySession
	for rows.Next() {
		var s domain.PlaySession
		err := rows.Scan(&s.ID, &s.UserID, &s.GameID, &s.Status, &s.StartedAt,
			&s.LastHeartbeatAt, &s.HeartbeatCount, &s.ApprovedMinutes)
		if err != nil {
			zap.L().Error("can't scan session row", zap.Error(err))
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
