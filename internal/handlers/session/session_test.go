package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/dto"
	"github.com/playvault/playvault/internal/guard"
	"github.com/playvault/playvault/internal/service/sessionservice"
	pkgauth "github.com/playvault/playvault/pkg/auth"
	"github.com/playvault/playvault/pkg/utils"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*SessionHandler, *MockService, *MockGuard) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	g := NewMockGuard(ctrl)
	handler := New(service, g)
	defer ctrl.Finish()
	return handler, service, g
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	ctx := context.WithValue(req.Context(), pkgauth.UserIDKey, 1)
	return req.WithContext(ctx)
}

func withSessionID(req *http.Request, sessionID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", sessionID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestStartSessionHandler(t *testing.T) {
	handler, service, g := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful start",
			body: `{"game_id":"runner-3d"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionStartSession, "1").Return(true)
				service.EXPECT().Start(gomock.Any(), 1, "runner-3d").Return(&domain.PlaySession{
					ID:     "8a9f0b44-91c5-4f0e-9c4e-6a9c1d3e5b77",
					UserID: 1,
					Status: domain.SessionOpen,
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Missing game id",
			body:          `{}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
		{
			name: "Rate limited",
			body: `{"game_id":"runner-3d"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionStartSession, "1").Return(false)
			},
			expectedCode:  http.StatusTooManyRequests,
			expectedError: "Too many requests",
		},
		{
			name: "Session already active",
			body: `{"game_id":"runner-3d"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionStartSession, "1").Return(true)
				service.EXPECT().Start(gomock.Any(), 1, "runner-3d").Return(nil, sessionservice.ErrAlreadyActive)
			},
			expectedCode:  http.StatusConflict,
			expectedError: sessionservice.ErrAlreadyActive.Error(),
		},
		{
			name: "Blocked account",
			body: `{"game_id":"runner-3d"}`,
			prepareMock: func() {
				g.EXPECT().Allow(gomock.Any(), guard.ActionStartSession, "1").Return(true)
				service.EXPECT().Start(gomock.Any(), 1, "runner-3d").Return(nil, sessionservice.ErrBlocked)
			},
			expectedCode:  http.StatusForbidden,
			expectedError: sessionservice.ErrBlocked.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := authedRequest("POST", "/api/session/start", tt.body)
			rr := httptest.NewRecorder()

			handler.StartSession(rr, req)

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

func TestHeartbeatHandler(t *testing.T) {
	handler, service, g := NewMock(t)

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Active heartbeat marks activity",
			body: `{"active":true}`,
			prepareMock: func() {
				g.EXPECT().MarkActivity(gomock.Any(), 1)
				service.EXPECT().Heartbeat(gomock.Any(), 1, "s1").Return(12, 13, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Inactive heartbeat skips the activity mark",
			body: `{"active":false}`,
			prepareMock: func() {
				service.EXPECT().Heartbeat(gomock.Any(), 1, "s1").Return(10, 13, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Unknown session",
			body: `{"active":true}`,
			prepareMock: func() {
				g.EXPECT().MarkActivity(gomock.Any(), 1)
				service.EXPECT().Heartbeat(gomock.Any(), 1, "s1").Return(0, 0, sessionservice.ErrSessionNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := withSessionID(authedRequest("POST", "/api/session/s1/heartbeat", tt.body), "s1")
			rr := httptest.NewRecorder()

			handler.Heartbeat(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

func TestSubmitSessionHandler(t *testing.T) {
	handler, service, _ := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
		expectedBody *dto.SubmitSessionResponseDTO
	}{
		{
			name: "Successful submit",
			prepareMock: func() {
				service.EXPECT().Submit(gomock.Any(), 1, "s1").Return(int64(48), int64(1048), nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &dto.SubmitSessionResponseDTO{PointsEarned: 48, NewBalance: 1048},
		},
		{
			name: "Daily limit exceeded",
			prepareMock: func() {
				service.EXPECT().Submit(gomock.Any(), 1, "s1").Return(int64(0), int64(0), sessionservice.ErrDailyLimitExceeded)
			},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Second submit finds no open session",
			prepareMock: func() {
				service.EXPECT().Submit(gomock.Any(), 1, "s1").Return(int64(0), int64(0), sessionservice.ErrSessionNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := withSessionID(authedRequest("POST", "/api/session/s1/submit", ""), "s1")
			rr := httptest.NewRecorder()

			handler.SubmitSession(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedBody != nil {
				var resp dto.SubmitSessionResponseDTO
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, *tt.expectedBody, resp)
			}
		})
	}
}
