package sessionservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/pg"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

var testNow = time.Date(2024, 11, 5, 16, 0, 0, 0, time.UTC)

func NewMock(t *testing.T) (*Service, *MockSessionRepo, *MockAccountRepo, *MockLedgerRepo, *MockActivityChecker, *MockEventPublisher) {
	ctrl := gomock.NewController(t)
	sessionRepo := NewMockSessionRepo(ctrl)
	accountRepo := NewMockAccountRepo(ctrl)
	ledgerRepo := NewMockLedgerRepo(ctrl)
	activity := NewMockActivityChecker(ctrl)
	events := NewMockEventPublisher(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()

	service := New(sessionRepo, accountRepo, ledgerRepo, txManager, activity, events, Config{
		PointsPerMinute:   1,
		SessionCapMinutes: 48,
		DailyLimitPoints:  2880,
		Location:          time.UTC,
	})
	service.now = func() time.Time { return testNow }
	defer ctrl.Finish()
	return service, sessionRepo, accountRepo, ledgerRepo, activity, events
}

func TestStart(t *testing.T) {
	service, sessionRepo, accountRepo, _, _, _ := NewMock(t)
	tests := []struct {
		name          string
		userID        int
		gameID        string
		prepareMock   func()
		expectedError error
	}{
		{
			name:   "Successful start",
			userID: 1,
			gameID: "runner-3d",
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{ID: 1}, nil)
				sessionRepo.EXPECT().FindOpenByUser(gomock.Any(), 1).Return(nil, nil)
				sessionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:   "Open session already exists",
			userID: 1,
			gameID: "runner-3d",
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{ID: 1}, nil)
				sessionRepo.EXPECT().FindOpenByUser(gomock.Any(), 1).Return(&domain.PlaySession{ID: "existing", UserID: 1}, nil)
			},
			expectedError: ErrAlreadyActive,
		},
		{
			name:   "Concurrent start loses the index race",
			userID: 1,
			gameID: "runner-3d",
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{ID: 1}, nil)
				sessionRepo.EXPECT().FindOpenByUser(gomock.Any(), 1).Return(nil, nil)
				sessionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&pgconn.PgError{Code: "23505"})
			},
			expectedError: ErrAlreadyActive,
		},
		{
			name:   "Blocked account",
			userID: 2,
			gameID: "runner-3d",
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(gomock.Any(), 2).Return(&domain.UserAccount{ID: 2, Blocked: true}, nil)
			},
			expectedError: ErrBlocked,
		},
		{
			name:   "Unknown account",
			userID: 3,
			gameID: "runner-3d",
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(gomock.Any(), 3).Return(nil, nil)
			},
			expectedError: ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			session, err := service.Start(context.Background(), tt.userID, tt.gameID)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, session)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, session.ID)
				assert.Equal(t, domain.SessionOpen, session.Status)
				assert.Equal(t, testNow, session.StartedAt)
			}
		})
	}
}

func TestHeartbeat(t *testing.T) {
	service, sessionRepo, _, _, activity, _ := NewMock(t)
	tests := []struct {
		name            string
		prepareMock     func()
		expectedMinutes int
		expectedBeats   int
		expectedError   error
	}{
		{
			name: "Active heartbeat advances approved minutes",
			prepareMock: func() {
				activity.EXPECT().IsActive(gomock.Any(), 1).Return(true)
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					Status:          domain.SessionOpen,
					StartedAt:       testNow.Add(-12 * time.Minute),
					ApprovedMinutes: 10,
					HeartbeatCount:  11,
				}, nil)
				sessionRepo.EXPECT().UpdateProgress(gomock.Any(), "s1", 12, 12, testNow).Return(nil)
			},
			expectedMinutes: 12,
			expectedBeats:   12,
		},
		{
			name: "Stale activity freezes the counter",
			prepareMock: func() {
				activity.EXPECT().IsActive(gomock.Any(), 1).Return(false)
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					Status:          domain.SessionOpen,
					StartedAt:       testNow.Add(-30 * time.Minute),
					ApprovedMinutes: 10,
					HeartbeatCount:  11,
				}, nil)
				sessionRepo.EXPECT().UpdateProgress(gomock.Any(), "s1", 10, 12, testNow).Return(nil)
			},
			expectedMinutes: 10,
			expectedBeats:   12,
		},
		{
			name: "Elapsed time clamps at the session cap",
			prepareMock: func() {
				activity.EXPECT().IsActive(gomock.Any(), 1).Return(true)
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					Status:          domain.SessionOpen,
					StartedAt:       testNow.Add(-3 * time.Hour),
					ApprovedMinutes: 48,
					HeartbeatCount:  100,
				}, nil)
				sessionRepo.EXPECT().UpdateProgress(gomock.Any(), "s1", 48, 101, testNow).Return(nil)
			},
			expectedMinutes: 48,
			expectedBeats:   101,
		},
		{
			name: "Foreign session is invisible",
			prepareMock: func() {
				activity.EXPECT().IsActive(gomock.Any(), 1).Return(true)
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:     "s1",
					UserID: 99,
					Status: domain.SessionOpen,
				}, nil)
			},
			expectedError: ErrSessionNotFound,
		},
		{
			name: "Closed session",
			prepareMock: func() {
				activity.EXPECT().IsActive(gomock.Any(), 1).Return(true)
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:     "s1",
					UserID: 1,
					Status: domain.SessionApproved,
				}, nil)
			},
			expectedError: ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			minutes, beats, err := service.Heartbeat(context.Background(), 1, "s1")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedMinutes, minutes)
				assert.Equal(t, tt.expectedBeats, beats)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	service, sessionRepo, accountRepo, ledgerRepo, _, events := NewMock(t)
	tests := []struct {
		name            string
		prepareMock     func()
		expectedAward   int64
		expectedBalance int64
		expectedError   error
	}{
		{
			name: "Successful submit credits award and appends earn entry",
			prepareMock: func() {
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					GameID:          "runner-3d",
					Status:          domain.SessionOpen,
					ApprovedMinutes: 48,
				}, nil)
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{
					ID:                1,
					PointBalance:      1000,
					PointsEarnedToday: 0,
				}, nil)
				sessionRepo.EXPECT().SetStatus(gomock.Any(), "s1", domain.SessionApproved).Return(true, nil)
				accountRepo.EXPECT().ApplyAccrual(gomock.Any(), 1, int64(48), int64(48), testNow).Return(&domain.UserAccount{
					ID:           1,
					PointBalance: 1048,
				}, nil)
				ledgerRepo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
						assert.Equal(t, domain.EntryEarn, entry.Type)
						assert.Equal(t, int64(48), entry.PointsDelta)
						assert.Equal(t, int64(1048), entry.BalanceAfter)
						return entry, nil
					})
				events.EXPECT().PublishEntry(gomock.Any())
			},
			expectedAward:   48,
			expectedBalance: 1048,
		},
		{
			name: "Over-limit session commits nothing",
			prepareMock: func() {
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					Status:          domain.SessionOpen,
					ApprovedMinutes: 20,
				}, nil)
				last := testNow.Add(-time.Hour)
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{
					ID:                1,
					PointBalance:      1000,
					PointsEarnedToday: 2870,
					LastAccrualAt:     &last,
				}, nil)
			},
			expectedError: ErrDailyLimitExceeded,
		},
		{
			name: "Second submit cannot credit twice",
			prepareMock: func() {
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					Status:          domain.SessionOpen,
					ApprovedMinutes: 10,
				}, nil)
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{ID: 1}, nil)
				sessionRepo.EXPECT().SetStatus(gomock.Any(), "s1", domain.SessionApproved).Return(false, nil)
			},
			expectedError: ErrSessionNotFound,
		},
		{
			name: "Stale daily counter rolls over to a fresh day",
			prepareMock: func() {
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:              "s1",
					UserID:          1,
					Status:          domain.SessionOpen,
					ApprovedMinutes: 20,
				}, nil)
				last := testNow.Add(-48 * time.Hour)
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{
					ID:                1,
					PointBalance:      1000,
					PointsEarnedToday: 2870,
					LastAccrualAt:     &last,
				}, nil)
				sessionRepo.EXPECT().SetStatus(gomock.Any(), "s1", domain.SessionApproved).Return(true, nil)
				accountRepo.EXPECT().ApplyAccrual(gomock.Any(), 1, int64(20), int64(20), testNow).Return(&domain.UserAccount{
					ID:           1,
					PointBalance: 1020,
				}, nil)
				ledgerRepo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
						return entry, nil
					})
				events.EXPECT().PublishEntry(gomock.Any())
			},
			expectedAward:   20,
			expectedBalance: 1020,
		},
		{
			name: "Blocked account cannot submit",
			prepareMock: func() {
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(&domain.PlaySession{
					ID:     "s1",
					UserID: 1,
					Status: domain.SessionOpen,
				}, nil)
				accountRepo.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.UserAccount{ID: 1, Blocked: true}, nil)
			},
			expectedError: ErrBlocked,
		},
		{
			name: "Repo error propagates",
			prepareMock: func() {
				sessionRepo.EXPECT().FindByID(gomock.Any(), "s1").Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			award, balance, err := service.Submit(context.Background(), 1, "s1")
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedAward, award)
				assert.Equal(t, tt.expectedBalance, balance)
			}
		})
	}
}
