package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/guard"
	"github.com/playvault/playvault/internal/service/accountservice"
	"github.com/playvault/playvault/pkg/utils"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*AuthHandler, *MockService, *MockLimiter) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	limiter := NewMockLimiter(ctrl)
	handler := New(service, limiter)
	defer ctrl.Finish()
	return handler, service, limiter
}

func TestRegisterHandler(t *testing.T) {
	handler, service, _ := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful registration",
			body: `{"login":"testuser","password":"password"}`,
			prepareMock: func() {
				service.EXPECT().Register(gomock.Any(), "testuser", "password").Return(&domain.UserAccount{ID: 1}, nil)
				service.EXPECT().GenerateToken(1, false).Return("token", nil)
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
			name: "Login already taken",
			body: `{"login":"testuser","password":"password"}`,
			prepareMock: func() {
				service.EXPECT().Register(gomock.Any(), "testuser", "password").Return(nil, accountservice.ErrLoginTaken)
			},
			expectedCode:  http.StatusConflict,
			expectedError: accountservice.ErrLoginTaken.Error(),
		},
		{
			name: "Registration fails",
			body: `{"login":"testuser","password":"password"}`,
			prepareMock: func() {
				service.EXPECT().Register(gomock.Any(), "testuser", "password").Return(nil, errors.New("db error"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
		{
			name: "Token generation fails",
			body: `{"login":"testuser","password":"password"}`,
			prepareMock: func() {
				service.EXPECT().Register(gomock.Any(), "testuser", "password").Return(&domain.UserAccount{ID: 1}, nil)
				service.EXPECT().GenerateToken(1, false).Return("", errors.New("signing error"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Error generating token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()

			handler.Register(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, "Bearer token", rr.Header().Get("Authorization"))
			}
			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	handler, service, limiter := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful login",
			body: `{"login":"testuser","password":"password"}`,
			prepareMock: func() {
				limiter.EXPECT().Allow(gomock.Any(), guard.ActionLogin, "testuser").Return(true)
				service.EXPECT().Authenticate(gomock.Any(), "testuser", "password").Return(&domain.UserAccount{ID: 1, IsAdmin: true}, nil)
				service.EXPECT().GenerateToken(1, true).Return("token", nil)
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
			name: "Too many attempts",
			body: `{"login":"testuser","password":"password"}`,
			prepareMock: func() {
				limiter.EXPECT().Allow(gomock.Any(), guard.ActionLogin, "testuser").Return(false)
			},
			expectedCode:  http.StatusTooManyRequests,
			expectedError: "Too many attempts",
		},
		{
			name: "Wrong password",
			body: `{"login":"testuser","password":"wrong"}`,
			prepareMock: func() {
				limiter.EXPECT().Allow(gomock.Any(), guard.ActionLogin, "testuser").Return(true)
				service.EXPECT().Authenticate(gomock.Any(), "testuser", "wrong").Return(nil, accountservice.ErrInvalidCredentials)
			},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()

			handler.Login(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, "Bearer token", rr.Header().Get("Authorization"))
			}
			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}
