// Package sweeper reclaims play sessions whose client disappeared:
// sessions left OPEN past the idle grace window are moved to ABANDONED
// out of the hot path, which bounds liability from dangling sessions.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playvault/playvault/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var sweepingSessions sync.Map

type SessionRepo interface {
	FindIdleOpen(ctx context.Context, cutoff time.Time, limit uint32) ([]domain.PlaySession, error)
	SetStatus(ctx context.Context, sessionID, status string) (bool, error)
}

type Service struct {
	sessionRepo SessionRepo
	idleTimeout time.Duration
	interval    time.Duration
	limit       uint32
	workerPool  WorkerPoolI

	now func() time.Time
}

func New(sessionRepo SessionRepo, idleTimeout, interval time.Duration) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		idleTimeout: idleTimeout,
		interval:    interval,
		limit:       1000,
		workerPool:  NewWorkerPool(10),
		now:         time.Now,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Idle sweeper started")
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping sweeper")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.idleTimeout)
	sessions, err := s.sessionRepo.FindIdleOpen(ctx, cutoff, s.limit)
	if err != nil {
		zap.L().Error("Failed to fetch idle sessions", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, session := range sessions {
		session := session

		if _, loaded := sweepingSessions.LoadOrStore(session.ID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer sweepingSessions.Delete(session.ID)
				return s.abandon(ctx, session)
			})
			if err != nil {
				sweepingSessions.Delete(session.ID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error sweeping sessions", zap.Error(err))
	}
}

func (s *Service) abandon(ctx context.Context, session domain.PlaySession) error {
	ok, err := s.sessionRepo.SetStatus(ctx, session.ID, domain.SessionAbandoned)
	if err != nil {
		return fmt.Errorf("failed to abandon session %s: %w", session.ID, err)
	}
	if !ok {
		// Submitted or already swept between fetch and update.
		return nil
	}
	zap.L().Info("session abandoned",
		zap.String("session_id", session.ID), zap.Int("user_id", session.UserID))
	return nil
}
