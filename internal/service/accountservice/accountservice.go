package accountservice

import (
	"context"
	"errors"
	"time"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/policy"
	"github.com/playvault/playvault/pkg/auth"
	"go.uber.org/zap"
)

type AccountRepo interface {
	FindByLogin(ctx context.Context, login string) (*domain.UserAccount, error)
	FindByID(ctx context.Context, userID int) (*domain.UserAccount, error)
	Create(ctx context.Context, user *domain.UserAccount) (*domain.UserAccount, error)
	SetBlocked(ctx context.Context, userID int, blocked bool) (*domain.UserAccount, error)
}

type LedgerRepo interface {
	ListByUser(ctx context.Context, userID int) ([]domain.LedgerEntry, error)
	SumDeltas(ctx context.Context, userID int) (int64, error)
}

type Service struct {
	accountRepo AccountRepo
	ledgerRepo  LedgerRepo
	hashService auth.HashServiceInterface
	jwtService  auth.JWTServiceInterface
	location    *time.Location

	now func() time.Time
}

func New(accountRepo AccountRepo, ledgerRepo LedgerRepo, hashService auth.HashServiceInterface, jwtService auth.JWTServiceInterface, location *time.Location) *Service {
	return &Service{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		hashService: hashService,
		jwtService:  jwtService,
		location:    location,
		now:         time.Now,
	}
}

var (
	ErrLoginTaken         = errors.New("login already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
)

// Register creates the UserAccount on first contact; the account starts
// with a zero balance and an empty ledger.
func (s *Service) Register(ctx context.Context, login, password string) (*domain.UserAccount, error) {
	existing, err := s.accountRepo.FindByLogin(ctx, login)
	if err != nil {
		zap.L().Error("can't find user: ", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		zap.L().Info("user already exists, login: ", zap.String("login", login))
		return nil, ErrLoginTaken
	}
	hashedPassword, err := s.hashService.HashPassword(password)
	if err != nil {
		zap.L().Error("can't hash password: ", zap.Error(err))
		return nil, err
	}
	user := &domain.UserAccount{
		Login:        login,
		PasswordHash: hashedPassword,
	}
	newUser, err := s.accountRepo.Create(ctx, user)
	if err != nil {
		zap.L().Error("can't create user: ", zap.Error(err))
		return nil, err
	}

	zap.L().Info("user successfully registered", zap.String("login", login))
	return newUser, nil
}

func (s *Service) Authenticate(ctx context.Context, login, password string) (*domain.UserAccount, error) {
	user, err := s.accountRepo.FindByLogin(ctx, login)
	if err != nil || user == nil {
		zap.L().Error("invalid credentials", zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if ok := s.hashService.ComparePassword(user.PasswordHash, password); !ok {
		zap.L().Error("invalid credentials", zap.String("login", login))
		return nil, ErrInvalidCredentials
	}
	zap.L().Info("user successfully authenticated", zap.String("login", login))
	return user, nil
}

func (s *Service) GenerateToken(userID int, isAdmin bool) (string, error) {
	expirationTime := s.now().Add(15 * time.Minute)

	token, err := s.jwtService.GenerateJWT(userID, isAdmin, expirationTime)
	if err != nil {
		zap.L().Error("can't generate token: ", zap.Error(err))
		return "", err
	}
	return token, nil
}

// GetWallet returns the account together with the rollover-adjusted
// daily counter, so a stale points_earned_today from yesterday is
// reported as zero.
func (s *Service) GetWallet(ctx context.Context, userID int) (*domain.UserAccount, int64, error) {
	user, err := s.accountRepo.FindByID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get account", zap.Error(err))
		return nil, 0, err
	}
	if user == nil {
		return nil, 0, ErrAccountNotFound
	}
	earnedToday := policy.EffectiveEarnedToday(user.PointsEarnedToday, user.LastAccrualAt, s.now(), s.location)
	return user, earnedToday, nil
}

func (s *Service) GetLedger(ctx context.Context, userID int) ([]domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch ledger entries", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

func (s *Service) SetBlocked(ctx context.Context, userID int, blocked bool) (*domain.UserAccount, error) {
	user, err := s.accountRepo.SetBlocked(ctx, userID, blocked)
	if err != nil {
		zap.L().Error("failed to set blocked flag", zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}
	zap.L().Info("account blocked flag changed", zap.Int("user_id", userID), zap.Bool("blocked", blocked))
	return user, nil
}

// Audit replays the user's ledger and compares the prefix sum with the
// stored balance.
func (s *Service) Audit(ctx context.Context, userID int) (balance, ledgerSum int64, consistent bool, err error) {
	user, err := s.accountRepo.FindByID(ctx, userID)
	if err != nil {
		return 0, 0, false, err
	}
	if user == nil {
		return 0, 0, false, ErrAccountNotFound
	}
	sum, err := s.ledgerRepo.SumDeltas(ctx, userID)
	if err != nil {
		return 0, 0, false, err
	}
	if sum != user.PointBalance {
		zap.L().Error("ledger out of balance",
			zap.Int("user_id", userID), zap.Int64("balance", user.PointBalance), zap.Int64("ledger_sum", sum))
	}
	return user.PointBalance, sum, sum == user.PointBalance, nil
}
