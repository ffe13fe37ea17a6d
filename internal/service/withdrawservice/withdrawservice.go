package withdrawservice

import (
	"context"
	"errors"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"github.com/playvault/playvault/internal/policy"
	"github.com/playvault/playvault/pkg/validate"
	"go.uber.org/zap"
)

type AccountRepo interface {
	FindByID(ctx context.Context, userID int) (*domain.UserAccount, error)
	ApplyDelta(ctx context.Context, userID int, delta int64) (*domain.UserAccount, error)
}

type WithdrawalRepo interface {
	Create(ctx context.Context, request *domain.WithdrawRequest) (*domain.WithdrawRequest, error)
	FindByID(ctx context.Context, requestID int64) (*domain.WithdrawRequest, error)
	FindPendingByUser(ctx context.Context, userID int) (*domain.WithdrawRequest, error)
	SetStatus(ctx context.Context, requestID int64, fromStatus, toStatus, adminNote string) (*domain.WithdrawRequest, error)
	ListByUser(ctx context.Context, userID int) ([]domain.WithdrawRequest, error)
	ListByStatus(ctx context.Context, status string) ([]domain.WithdrawRequest, error)
}

type LedgerRepo interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)
}

type EventPublisher interface {
	PublishEntry(entry *domain.LedgerEntry)
}

type Config struct {
	MinWithdraw    float64
	ConversionRate int64
	PayoutRail     string
}

type Service struct {
	accountRepo    AccountRepo
	withdrawalRepo WithdrawalRepo
	ledgerRepo     LedgerRepo
	txManager      pg.TXManager
	events         EventPublisher
	cfg            Config
}

func New(accountRepo AccountRepo, withdrawalRepo WithdrawalRepo, ledgerRepo LedgerRepo, txManager pg.TXManager, events EventPublisher, cfg Config) *Service {
	return &Service{
		accountRepo:    accountRepo,
		withdrawalRepo: withdrawalRepo,
		ledgerRepo:     ledgerRepo,
		txManager:      txManager,
		events:         events,
		cfg:            cfg,
	}
}

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrBlocked            = errors.New("account is blocked")
	ErrBelowMinimum       = errors.New("amount below withdrawal minimum")
	ErrInvalidDestination = errors.New("invalid payout destination")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrAlreadyPending     = errors.New("a pending withdrawal already exists")
	ErrRequestNotFound    = errors.New("withdraw request not found")
	ErrNotPending         = errors.New("withdraw request is not pending")
	ErrNotApproved        = errors.New("withdraw request is not approved")
)

// Request locks points at request time: the cost leaves the spendable
// balance immediately, paired with a withdraw_lock entry, so two
// concurrent requests cannot spend the same balance.
func (s *Service) Request(ctx context.Context, userID int, amountCurrency float64, destination string) (*domain.WithdrawRequest, error) {
	if amountCurrency < s.cfg.MinWithdraw {
		return nil, ErrBelowMinimum
	}
	if !validate.Destination(s.cfg.PayoutRail, destination) {
		return nil, ErrInvalidDestination
	}

	cost := policy.PointsCost(amountCurrency, s.cfg.ConversionRate)
	var request *domain.WithdrawRequest
	var entry *domain.LedgerEntry
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

		pending, err := s.withdrawalRepo.FindPendingByUser(ctx, userID)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrAlreadyPending
		}
		if user.PointBalance < cost {
			return ErrInsufficientPoints
		}

		updated, err := s.accountRepo.ApplyDelta(ctx, userID, -cost)
		if err != nil {
			return err
		}

		request, err = s.withdrawalRepo.Create(ctx, &domain.WithdrawRequest{
			UserID:         userID,
			AmountCurrency: amountCurrency,
			PointsCost:     cost,
			Status:         domain.WithdrawPending,
			Destination:    destination,
		})
		if err != nil {
			return err
		}

		entry, err = s.ledgerRepo.Append(ctx, &domain.LedgerEntry{
			UserID:       userID,
			Type:         domain.EntryWithdrawLock,
			PointsDelta:  -cost,
			BalanceAfter: updated.PointBalance,
			Meta:         map[string]any{"withdraw_id": request.ID, "destination": destination},
		})
		return err
	})
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, ErrAlreadyPending
		}
		return nil, err
	}

	s.events.PublishEntry(entry)
	zap.L().Info("withdraw requested",
		zap.Int("user_id", userID), zap.Int64("request_id", request.ID), zap.Int64("points_cost", cost))
	return request, nil
}

// Approve moves PENDING to APPROVED. Points stay locked.
func (s *Service) Approve(ctx context.Context, requestID int64) (*domain.WithdrawRequest, error) {
	var request *domain.WithdrawRequest
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.withdrawalRepo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrRequestNotFound
		}
		request, err = s.withdrawalRepo.SetStatus(ctx, requestID, domain.WithdrawPending, domain.WithdrawApproved, current.AdminNote)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrNotPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Reject returns the locked points in the same transaction as the
// status flip, so balance restoration and the withdraw_unlock entry are
// inseparable.
func (s *Service) Reject(ctx context.Context, requestID int64, reason string) (*domain.WithdrawRequest, error) {
	var request *domain.WithdrawRequest
	var entry *domain.LedgerEntry
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.withdrawalRepo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrRequestNotFound
		}
		request, err = s.withdrawalRepo.SetStatus(ctx, requestID, domain.WithdrawPending, domain.WithdrawRejected, reason)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrNotPending
		}

		updated, err := s.accountRepo.ApplyDelta(ctx, request.UserID, request.PointsCost)
		if err != nil {
			return err
		}
		entry, err = s.ledgerRepo.Append(ctx, &domain.LedgerEntry{
			UserID:       request.UserID,
			Type:         domain.EntryWithdrawUnlock,
			PointsDelta:  request.PointsCost,
			BalanceAfter: updated.PointBalance,
			Meta:         map[string]any{"withdraw_id": request.ID, "reason": reason},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishEntry(entry)
	zap.L().Info("withdraw rejected", zap.Int64("request_id", requestID), zap.String("reason", reason))
	return request, nil
}

// MarkPaid finalizes an APPROVED request. The earlier lock becomes the
// permanent debit; a zero-delta settle entry carries the payout proof.
func (s *Service) MarkPaid(ctx context.Context, requestID int64, proof string) (*domain.WithdrawRequest, error) {
	var request *domain.WithdrawRequest
	var entry *domain.LedgerEntry
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		current, err := s.withdrawalRepo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrRequestNotFound
		}
		request, err = s.withdrawalRepo.SetStatus(ctx, requestID, domain.WithdrawApproved, domain.WithdrawPaid, proof)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrNotApproved
		}

		user, err := s.accountRepo.FindByID(ctx, request.UserID)
		if err != nil {
			return err
		}
		entry, err = s.ledgerRepo.Append(ctx, &domain.LedgerEntry{
			UserID:       request.UserID,
			Type:         domain.EntryWithdrawSettle,
			PointsDelta:  0,
			BalanceAfter: user.PointBalance,
			Meta:         map[string]any{"withdraw_id": request.ID, "proof": proof},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishEntry(entry)
	zap.L().Info("withdraw marked paid", zap.Int64("request_id", requestID))
	return request, nil
}

func (s *Service) List(ctx context.Context, userID int) ([]domain.WithdrawRequest, error) {
	requests, err := s.withdrawalRepo.ListByUser(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch withdraw requests", zap.Error(err))
		return nil, err
	}
	return requests, nil
}

func (s *Service) ListByStatus(ctx context.Context, status string) ([]domain.WithdrawRequest, error) {
	requests, err := s.withdrawalRepo.ListByStatus(ctx, status)
	if err != nil {
		zap.L().Error("failed to fetch withdraw requests by status", zap.Error(err))
		return nil, err
	}
	return requests, nil
}
