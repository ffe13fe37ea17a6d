package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/dto"
	"github.com/playvault/playvault/internal/pg"
	"github.com/playvault/playvault/internal/service/accountservice"
	"github.com/playvault/playvault/internal/service/withdrawservice"
	"github.com/playvault/playvault/pkg/utils"
)

type WithdrawService interface {
	Approve(ctx context.Context, requestID int64) (*domain.WithdrawRequest, error)
	Reject(ctx context.Context, requestID int64, reason string) (*domain.WithdrawRequest, error)
	MarkPaid(ctx context.Context, requestID int64, proof string) (*domain.WithdrawRequest, error)
	ListByStatus(ctx context.Context, status string) ([]domain.WithdrawRequest, error)
}

type AccountService interface {
	SetBlocked(ctx context.Context, userID int, blocked bool) (*domain.UserAccount, error)
	Audit(ctx context.Context, userID int) (balance, ledgerSum int64, consistent bool, err error)
}

type AdminHandler struct {
	withdrawService WithdrawService
	accountService  AccountService
}

func New(withdrawService WithdrawService, accountService AccountService) *AdminHandler {
	return &AdminHandler{
		withdrawService: withdrawService,
		accountService:  accountService,
	}
}

// ListWithdrawals godoc
//
//	@Summary		List withdrawals by status
//	@Description	Review queue for operators, defaults to PENDING
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			status	query		string	false	"Withdrawal status"	default(PENDING)
//	@Success		200		{array}		dto.AdminWithdrawalResponseDTO
//	@Success		204		"No withdrawals in this status"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		403		{object}	utils.Response	"Admin access required"
//	@Router			/api/admin/withdrawals [get]
func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.WithdrawPending
	}

	requests, err := h.withdrawService.ListByStatus(r.Context(), status)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(requests) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	response := make([]dto.AdminWithdrawalResponseDTO, 0, len(requests))
	for _, request := range requests {
		response = append(response, dto.AdminWithdrawalResponseDTO{
			ID:        request.ID,
			UserID:    request.UserID,
			Status:    request.Status,
			AdminNote: request.AdminNote,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// ApproveWithdrawal godoc
//
//	@Summary		Approve a withdrawal
//	@Description	Move a PENDING request to APPROVED. Points stay locked until the payout is marked paid.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			requestID	path		int	true	"Withdraw request id"
//	@Success		200			{object}	dto.AdminWithdrawalResponseDTO
//	@Failure		400			{object}	utils.Response	"Invalid request id"
//	@Failure		404			{object}	utils.Response	"Request not found"
//	@Failure		409			{object}	utils.Response	"Request is not pending"
//	@Router			/api/admin/withdrawals/{requestID}/approve [post]
func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request id")
		return
	}
	request, err := h.withdrawService.Approve(r.Context(), requestID)
	h.respondDecision(w, request, err)
}

// RejectWithdrawal godoc
//
//	@Summary		Reject a withdrawal
//	@Description	Move a PENDING request to REJECTED and return the locked points to the balance.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			requestID	path		int							true	"Withdraw request id"
//	@Param			request		body		dto.AdminDecisionRequestDTO	true	"Rejection reason"
//	@Success		200			{object}	dto.AdminWithdrawalResponseDTO
//	@Failure		400			{object}	utils.Response	"Invalid request"
//	@Failure		404			{object}	utils.Response	"Request not found"
//	@Failure		409			{object}	utils.Response	"Request is not pending"
//	@Router			/api/admin/withdrawals/{requestID}/reject [post]
func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request id")
		return
	}
	var req dto.AdminDecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	request, err := h.withdrawService.Reject(r.Context(), requestID, req.Note)
	h.respondDecision(w, request, err)
}

// MarkPaid godoc
//
//	@Summary		Mark a withdrawal paid
//	@Description	Finalize an APPROVED request after the external payout. Terminal state.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			requestID	path		int							true	"Withdraw request id"
//	@Param			request		body		dto.AdminDecisionRequestDTO	true	"Payout proof"
//	@Success		200			{object}	dto.AdminWithdrawalResponseDTO
//	@Failure		400			{object}	utils.Response	"Invalid request"
//	@Failure		404			{object}	utils.Response	"Request not found"
//	@Failure		409			{object}	utils.Response	"Request is not approved"
//	@Router			/api/admin/withdrawals/{requestID}/paid [post]
func (h *AdminHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request id")
		return
	}
	var req dto.AdminDecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	request, err := h.withdrawService.MarkPaid(r.Context(), requestID, req.Note)
	h.respondDecision(w, request, err)
}

func (h *AdminHandler) respondDecision(w http.ResponseWriter, request *domain.WithdrawRequest, err error) {
	if err != nil {
		switch {
		case errors.Is(err, withdrawservice.ErrRequestNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, withdrawservice.ErrNotPending), errors.Is(err, withdrawservice.ErrNotApproved):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pg.ErrContention):
			w.Header().Set("Retry-After", "1")
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.AdminWithdrawalResponseDTO{
		ID:        request.ID,
		UserID:    request.UserID,
		Status:    request.Status,
		AdminNote: request.AdminNote,
	})
}

// BlockAccount godoc
//
//	@Summary		Block an account
//	@Description	A blocked account keeps its balance but cannot earn or withdraw.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userID	path		int	true	"User id"
//	@Success		200		{object}	dto.AdminAccountResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid user id"
//	@Failure		404		{object}	utils.Response	"Account not found"
//	@Router			/api/admin/accounts/{userID}/block [post]
func (h *AdminHandler) BlockAccount(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// UnblockAccount godoc
//
//	@Summary		Unblock an account
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userID	path		int	true	"User id"
//	@Success		200		{object}	dto.AdminAccountResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid user id"
//	@Failure		404		{object}	utils.Response	"Account not found"
//	@Router			/api/admin/accounts/{userID}/unblock [post]
func (h *AdminHandler) UnblockAccount(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *AdminHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	user, err := h.accountService.SetBlocked(r.Context(), userID, blocked)
	if err != nil {
		if errors.Is(err, accountservice.ErrAccountNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.AdminAccountResponseDTO{
		UserID:  user.ID,
		Blocked: user.Blocked,
		Balance: user.PointBalance,
	})
}

// AuditAccount godoc
//
//	@Summary		Audit an account
//	@Description	Replay the user's ledger and compare the sum of deltas with the stored balance.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userID	path		int	true	"User id"
//	@Success		200		{object}	dto.AdminAuditResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid user id"
//	@Failure		404		{object}	utils.Response	"Account not found"
//	@Router			/api/admin/accounts/{userID}/audit [get]
func (h *AdminHandler) AuditAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	balance, ledgerSum, consistent, err := h.accountService.Audit(r.Context(), userID)
	if err != nil {
		if errors.Is(err, accountservice.ErrAccountNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.AdminAuditResponseDTO{
		UserID:     userID,
		Balance:    balance,
		LedgerSum:  ledgerSum,
		Consistent: consistent,
	})
}
