package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/dto"
	"github.com/playvault/playvault/internal/guard"
	"github.com/playvault/playvault/internal/service/withdrawservice"
	pkgauth "github.com/playvault/playvault/pkg/auth"
	"github.com/playvault/playvault/pkg/utils"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*WalletHandler, *MockAccountService, *MockWithdrawService, *MockGuard) {
	ctrl := gomock.NewController(t)
	accountService := NewMockAccountService(ctrl)
	withdrawService := NewMockWithdrawService(ctrl)
	g := NewMockGuard(ctrl)
	handler := New(accountService, withdrawService, g)
	defer ctrl.Finish()
	return handler, accountService, withdrawService, g
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	ctx := context.WithValue(req.Context(), pkgauth.UserIDKey, 1)
	return req.WithContext(ctx)
}

func TestGetWalletHandler(t *testing.T) {
	handler, accountService, _, _ := NewMock(t)

	accountService.EXPECT().GetWallet(gomock.Any(), 1).Return(&domain.UserAccount{
		ID:           1,
		PointBalance: 50000,
	}, int64(120), nil)

	req := authedRequest("GET", "/api/wallet", "")
	rr := httptest.NewRecorder()

	handler.GetWallet(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp dto.WalletResponseDTO
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(50000), resp.Balance)
	assert.Equal(t, int64(120), resp.EarnedToday)
	assert.False(t, resp.Blocked)
}

func TestGetLedgerHandler(t *testing.T) {
	handler, accountService, _, _ := NewMock(t)

	t.Run("Entries returned", func(t *testing.T) {
		accountService.EXPECT().GetLedger(gomock.Any(), 1).Return([]domain.LedgerEntry{
			{ID: 17, UserID: 1, Type: domain.EntryEarn, PointsDelta: 48, BalanceAfter: 1048, CreatedAt: time.Now()},
		}, nil)

		req := authedRequest("GET", "/api/wallet/ledger", "")
		rr := httptest.NewRecorder()

		handler.GetLedger(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp []dto.LedgerEntryDTO
		err := json.NewDecoder(rr.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, domain.EntryEarn, resp[0].Type)
	})

	t.Run("Empty ledger returns no content", func(t *testing.T) {
		accountService.EXPECT().GetLedger(gomock.Any(), 1).Return(nil, nil)

		req := authedRequest("GET", "/api/wallet/ledger", "")
		rr := httptest.NewRecorder()

		handler.GetLedger(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestWithdrawHandler(t *testing.T) {
	handler, _, withdrawService, g := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful withdrawal request",
			body: `{"amount":20,"destination":"2377225624"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionWithdraw, "1").Return(true)
				withdrawService.EXPECT().Request(gomock.Any(), 1, 20.0, "2377225624").Return(&domain.WithdrawRequest{
					ID:         3,
					PointsCost: 20000,
					Status:     domain.WithdrawPending,
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Invalid request body",
			body:          `{invalid json`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
		{
			name: "Rate limited",
			body: `{"amount":20,"destination":"2377225624"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionWithdraw, "1").Return(false)
			},
			expectedCode:  http.StatusTooManyRequests,
			expectedError: "Too many requests",
		},
		{
			name: "Insufficient points",
			body: `{"amount":100,"destination":"2377225624"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionWithdraw, "1").Return(true)
				withdrawService.EXPECT().Request(gomock.Any(), 1, 100.0, "2377225624").Return(nil, withdrawservice.ErrInsufficientPoints)
			},
			expectedCode:  http.StatusPaymentRequired,
			expectedError: withdrawservice.ErrInsufficientPoints.Error(),
		},
		{
			name: "A pending request already exists",
			body: `{"amount":20,"destination":"2377225624"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionWithdraw, "1").Return(true)
				withdrawService.EXPECT().Request(gomock.Any(), 1, 20.0, "2377225624").Return(nil, withdrawservice.ErrAlreadyPending)
			},
			expectedCode:  http.StatusConflict,
			expectedError: withdrawservice.ErrAlreadyPending.Error(),
		},
		{
			name: "Amount below minimum",
			body: `{"amount":1,"destination":"2377225624"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionWithdraw, "1").Return(true)
				withdrawService.EXPECT().Request(gomock.Any(), 1, 1.0, "2377225624").Return(nil, withdrawservice.ErrBelowMinimum)
			},
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: withdrawservice.ErrBelowMinimum.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := authedRequest("POST", "/api/wallet/withdraw", tt.body)
			rr := httptest.NewRecorder()

			handler.Withdraw(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestGetWithdrawalsHandler(t *testing.T) {
	handler, _, withdrawService, _ := NewMock(t)

	t.Run("Withdrawals returned", func(t *testing.T) {
		withdrawService.EXPECT().List(gomock.Any(), 1).Return([]domain.WithdrawRequest{
			{ID: 3, UserID: 1, AmountCurrency: 20, PointsCost: 20000, Status: domain.WithdrawPending},
		}, nil)

		req := authedRequest("GET", "/api/wallet/withdrawals", "")
		rr := httptest.NewRecorder()

		handler.GetWithdrawals(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp []dto.WithdrawalDTO
		err := json.NewDecoder(rr.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, int64(3), resp[0].ID)
	})

	t.Run("No withdrawals returns no content", func(t *testing.T) {
		withdrawService.EXPECT().List(gomock.Any(), 1).Return(nil, nil)

		req := authedRequest("GET", "/api/wallet/withdrawals", "")
		rr := httptest.NewRecorder()

		handler.GetWithdrawals(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
