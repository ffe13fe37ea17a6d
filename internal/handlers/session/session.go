package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/dto"
	"github.com/playvault/playvault/internal/guard"
	"github.com/playvault/playvault/internal/pg"
	"github.com/playvault/playvault/internal/service/sessionservice"
	pkgauth "github.com/playvault/playvault/pkg/auth"
	"github.com/playvault/playvault/pkg/utils"
)

type Service interface {
	Start(ctx context.Context, userID int, gameID string) (*domain.PlaySession, error)
	Heartbeat(ctx context.Context, userID int, sessionID string) (int, int, error)
	Submit(ctx context.Context, userID int, sessionID string) (int64, int64, error)
}

type Guard interface {
	Allow(ctx context.Context, action, identity string) bool
	MarkActivity(ctx context.Context, userID int)
}

type SessionHandler struct {
	sessionService Service
	guard          Guard
}

func New(sessionService Service, g Guard) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		guard:          g,
	}
}

// StartSession godoc
//
//	@Summary		Start a play session
//	@Description	Open a play session for the authenticated user. Only one session can be open at a time.
//	@Tags			Session
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.StartSessionRequestDTO	true	"Session start payload"
//	@Success		200		{object}	dto.StartSessionResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		403		{object}	utils.Response	"Account blocked"
//	@Failure		409		{object}	utils.Response	"Session already active"
//	@Failure		429		{object}	utils.Response	"Too many requests"
//	@Failure		503		{object}	utils.Response	"Storage contention"
//	@Router			/api/session/start [post]
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)

	var req dto.StartSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.guard.Allow(r.Context(), guard.ActionStartSession, strconv.Itoa(userID)) {
		utils.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	session, err := h.sessionService.Start(r.Context(), userID, req.GameID)
	if err != nil {
		switch {
		case errors.Is(err, sessionservice.ErrAlreadyActive):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, sessionservice.ErrBlocked):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, sessionservice.ErrAccountNotFound):
			utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, pg.ErrContention):
			w.Header().Set("Retry-After", "1")
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.StartSessionResponseDTO{
		SessionID: session.ID,
	})
}

// Heartbeat godoc
//
//	@Summary		Session heartbeat
//	@Description	Re-evaluate server-approved minutes for an open session. The active flag carries the client interaction signal.
//	@Tags			Session
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			sessionID	path		string					true	"Session id"
//	@Param			request		body		dto.HeartbeatRequestDTO	true	"Heartbeat payload"
//	@Success		200			{object}	dto.HeartbeatResponseDTO
//	@Failure		400			{object}	utils.Response	"Invalid request body"
//	@Failure		401			{object}	utils.Response	"User not authorized"
//	@Failure		404			{object}	utils.Response	"Session not found"
//	@Router			/api/session/{sessionID}/heartbeat [post]
func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)
	sessionID := chi.URLParam(r, "sessionID")

	var req dto.HeartbeatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Active {
		h.guard.MarkActivity(r.Context(), userID)
	}

	minutes, beats, err := h.sessionService.Heartbeat(r.Context(), userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, sessionservice.ErrSessionNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, pg.ErrContention):
			w.Header().Set("Retry-After", "1")
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.HeartbeatResponseDTO{
		ApprovedMinutes: minutes,
		HeartbeatCount:  beats,
	})
}

// SubmitSession godoc
//
//	@Summary		Submit a play session
//	@Description	Close an open session and credit the earned points atomically with an earn ledger entry.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session id"
//	@Success		200			{object}	dto.SubmitSessionResponseDTO
//	@Failure		401			{object}	utils.Response	"User not authorized"
//	@Failure		403			{object}	utils.Response	"Account blocked"
//	@Failure		404			{object}	utils.Response	"Session not found"
//	@Failure		422			{object}	utils.Response	"Daily limit exceeded"
//	@Failure		503			{object}	utils.Response	"Storage contention"
//	@Router			/api/session/{sessionID}/submit [post]
func (h *SessionHandler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)
	sessionID := chi.URLParam(r, "sessionID")

	award, newBalance, err := h.sessionService.Submit(r.Context(), userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, sessionservice.ErrSessionNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, sessionservice.ErrDailyLimitExceeded):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, sessionservice.ErrBlocked):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, pg.ErrContention):
			w.Header().Set("Retry-After", "1")
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.SubmitSessionResponseDTO{
		PointsEarned: award,
		NewBalance:   newBalance,
	})
}
