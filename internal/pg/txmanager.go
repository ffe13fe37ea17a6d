package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ErrContention is returned after write-conflict retries are exhausted.
// Nothing was applied; the call is safe to retry verbatim.
var ErrContention = errors.New("storage contention")

const (
	maxTxRetries = 3
	baseBackoff  = 50 * time.Millisecond
)

type TXManager interface {
	Begin(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

type Manager struct {
	pool *pgxpool.Pool
}

func NewTXManager(pool *pgxpool.Pool) *Manager {
	return &Manager{pool: pool}
}

// Begin runs fn inside a serializable transaction. All reads in fn see a
// consistent snapshot; serialization failures are retried with backoff.
// A nested Begin joins the transaction already bound to the context.
func (m *Manager) Begin(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	backoff := retry.WithMaxRetries(maxTxRetries, retry.NewExponential(baseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := m.runTx(ctx, fn)
		if isWriteConflict(err) {
			zap.L().Warn("write conflict, retrying transaction", zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if isWriteConflict(err) {
		return ErrContention
	}
	return err
}

func (m *Manager) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			zap.L().Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit(ctx)
}

func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation lets callers map 23505 from the partial unique
// indexes (one OPEN session, one PENDING withdrawal) to domain errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
