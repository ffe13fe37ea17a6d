package sessionservice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"github.com/playvault/playvault/internal/policy"
	"go.uber.org/zap"
)

type SessionRepo interface {
	Create(ctx context.Context, session *domain.PlaySession) error
	FindByID(ctx context.Context, sessionID string) (*domain.PlaySession, error)
	FindOpenByUser(ctx context.Context, userID int) (*domain.PlaySession, error)
	UpdateProgress(ctx context.Context, sessionID string, approvedMinutes, heartbeatCount int, at time.Time) error
	SetStatus(ctx context.Context, sessionID, status string) (bool, error)
}

type AccountRepo interface {
	FindByID(ctx context.Context, userID int) (*domain.UserAccount, error)
	ApplyAccrual(ctx context.Context, userID int, award, earnedToday int64, at time.Time) (*domain.UserAccount, error)
}

type LedgerRepo interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)
}

// ActivityChecker reports whether the user signalled real interaction
// recently. Advisory: it can suspend awarding, never corrupt it.
type ActivityChecker interface {
	IsActive(ctx context.Context, userID int) bool
}

type EventPublisher interface {
	PublishEntry(entry *domain.LedgerEntry)
}

type Config struct {
	PointsPerMinute   int64
	SessionCapMinutes int
	DailyLimitPoints  int64
	Location          *time.Location
}

type Service struct {
	sessionRepo SessionRepo
	accountRepo AccountRepo
	ledgerRepo  LedgerRepo
	txManager   pg.TXManager
	activity    ActivityChecker
	events      EventPublisher
	cfg         Config

	now func() time.Time
}

func New(sessionRepo SessionRepo, accountRepo AccountRepo, ledgerRepo LedgerRepo, txManager pg.TXManager, activity ActivityChecker, events EventPublisher, cfg Config) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txManager:   txManager,
		activity:    activity,
		events:      events,
		cfg:         cfg,
		now:         time.Now,
	}
}

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrBlocked            = errors.New("account is blocked")
	ErrAlreadyActive      = errors.New("an open session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDailyLimitExceeded = errors.New("daily point limit exceeded")
)

// Start opens a play session. The uniqueness check runs in the same
// transaction as the insert, and the partial unique index backs it up,
// so concurrent starts cannot produce two OPEN sessions.
func (s *Service) Start(ctx context.Context, userID int, gameID string) (*domain.PlaySession, error) {
	var session *domain.PlaySession
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		user, err := s.accountRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrAccountNotFound
		}
		if user.Blocked {
			return ErrBlocked
		}

		open, err := s.sessionRepo.FindOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAlreadyActive
		}

		now := s.now()
		session = &domain.PlaySession{
			ID:              uuid.NewString(),
			UserID:          userID,
			GameID:          gameID,
			Status:          domain.SessionOpen,
			StartedAt:       now,
			LastHeartbeatAt: now,
		}
		return s.sessionRepo.Create(ctx, session)
	})
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, ErrAlreadyActive
		}
		return nil, err
	}

	zap.L().Info("session started", zap.Int("user_id", userID), zap.String("session_id", session.ID))
	return session, nil
}

// Heartbeat re-evaluates elapsed time against the server clock. The
// client never reports a duration; a stale activity signal freezes the
// counter for this beat without ending the session.
func (s *Service) Heartbeat(ctx context.Context, userID int, sessionID string) (int, int, error) {
	active := s.activity.IsActive(ctx, userID)

	var minutes, beats int
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		session, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil || session.UserID != userID || session.Status != domain.SessionOpen {
			return ErrSessionNotFound
		}

		now := s.now()
		minutes = session.ApprovedMinutes
		if active {
			minutes = policy.ApprovedMinutes(session.StartedAt, now, s.cfg.SessionCapMinutes, session.ApprovedMinutes)
		} else {
			zap.L().Debug("no recent activity, approved minutes frozen",
				zap.Int("user_id", userID), zap.String("session_id", sessionID))
		}
		beats = session.HeartbeatCount + 1
		return s.sessionRepo.UpdateProgress(ctx, session.ID, minutes, beats, now)
	})
	if err != nil {
		return 0, 0, err
	}
	return minutes, beats, nil
}

// Submit closes the session and credits the award atomically with its
// earn ledger entry. The OPEN->APPROVED transition is a one-way gate
// verified inside the transaction, so a second submit cannot credit
// twice. The daily cap is all-or-nothing: an over-limit session commits
// nothing.
func (s *Service) Submit(ctx context.Context, userID int, sessionID string) (int64, int64, error) {
	var award, newBalance int64
	var entry *domain.LedgerEntry
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		session, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil || session.UserID != userID || session.Status != domain.SessionOpen {
			return ErrSessionNotFound
		}

		user, err := s.accountRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrAccountNotFound
		}
		if user.Blocked {
			return ErrBlocked
		}

		now := s.now()
		earnedToday := policy.EffectiveEarnedToday(user.PointsEarnedToday, user.LastAccrualAt, now, s.cfg.Location)
		var allowed bool
		award, allowed = policy.ComputeAward(session.ApprovedMinutes, s.cfg.PointsPerMinute,
			s.cfg.SessionCapMinutes, earnedToday, s.cfg.DailyLimitPoints)
		if !allowed {
			zap.L().Info("daily limit exceeded, award rejected",
				zap.Int("user_id", userID), zap.Int64("award", award), zap.Int64("earned_today", earnedToday))
			return ErrDailyLimitExceeded
		}

		ok, err := s.sessionRepo.SetStatus(ctx, session.ID, domain.SessionApproved)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionNotFound
		}

		updated, err := s.accountRepo.ApplyAccrual(ctx, userID, award, earnedToday+award, now)
		if err != nil {
			return err
		}
		newBalance = updated.PointBalance

		entry, err = s.ledgerRepo.Append(ctx, &domain.LedgerEntry{
			UserID:       userID,
			Type:         domain.EntryEarn,
			PointsDelta:  award,
			BalanceAfter: newBalance,
			Meta:         map[string]any{"session_id": session.ID, "game_id": session.GameID},
		})
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	s.events.PublishEntry(entry)
	zap.L().Info("session approved", zap.String("session_id", sessionID), zap.Int64("award", award))
	return award, newBalance, nil
}
