package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/playvault/playvault/internal/domain"
	"github.com/playvault/playvault/internal/dto"
	"github.com/playvault/playvault/internal/guard"
	"github.com/playvault/playvault/internal/pg"
	"github.com/playvault/playvault/internal/service/withdrawservice"
	pkgauth "github.com/playvault/playvault/pkg/auth"
	"github.com/playvault/playvault/pkg/utils"
)

type AccountService interface {
	GetWallet(ctx context.Context, userID int) (*domain.UserAccount, int64, error)
	GetLedger(ctx context.Context, userID int) ([]domain.LedgerEntry, error)
}

type WithdrawService interface {
	Request(ctx context.Context, userID int, amountCurrency float64, destination string) (*domain.WithdrawRequest, error)
	List(ctx context.Context, userID int) ([]domain.WithdrawRequest, error)
}

type Guard interface {
	Allow(ctx context.Context, action, identity string) bool
}

type WalletHandler struct {
	accountService  AccountService
	withdrawService WithdrawService
	guard           Guard
}

func New(accountService AccountService, withdrawService WithdrawService, g Guard) *WalletHandler {
	return &WalletHandler{
		accountService:  accountService,
		withdrawService: withdrawService,
		guard:           g,
	}
}

// GetWallet godoc
//
//	@Summary		Get wallet state
//	@Description	Current point balance, rollover-adjusted daily earnings and blocked flag
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.WalletResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)

	user, earnedToday, err := h.accountService.GetWallet(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WalletResponseDTO{
		Balance:     user.PointBalance,
		EarnedToday: earnedToday,
		Blocked:     user.Blocked,
	})
}

// GetLedger godoc
//
//	@Summary		Get ledger entries
//	@Description	Full ledger history for the authenticated user, newest first
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.LedgerEntryDTO
//	@Success		204	"No ledger entries"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet/ledger [get]
func (h *WalletHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)

	entries, err := h.accountService.GetLedger(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	response := make([]dto.LedgerEntryDTO, 0, len(entries))
	for _, entry := range entries {
		response = append(response, dto.LedgerEntryDTO{
			ID:           entry.ID,
			Type:         entry.Type,
			PointsDelta:  entry.PointsDelta,
			BalanceAfter: entry.BalanceAfter,
			Meta:         entry.Meta,
			CreatedAt:    entry.CreatedAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// Withdraw godoc
//
//	@Summary		Request a withdrawal
//	@Description	Convert points into a currency payout request. The points cost is locked immediately.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WithdrawRequestDTO	true	"Withdraw request body"
//	@Success		200		{object}	dto.WithdrawResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		402		{object}	utils.Response	"Insufficient points"
//	@Failure		403		{object}	utils.Response	"Account blocked"
//	@Failure		409		{object}	utils.Response	"A pending withdrawal already exists"
//	@Failure		422		{object}	utils.Response	"Invalid amount or destination"
//	@Failure		429		{object}	utils.Response	"Too many requests"
//	@Failure		503		{object}	utils.Response	"Storage contention"
//	@Router			/api/wallet/withdraw [post]
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)

	var req dto.WithdrawRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.guard.Allow(r.Context(), guard.ActionWithdraw, strconv.Itoa(userID)) {
		utils.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	request, err := h.withdrawService.Request(r.Context(), userID, req.Amount, req.Destination)
	if err != nil {
		switch {
		case errors.Is(err, withdrawservice.ErrBelowMinimum), errors.Is(err, withdrawservice.ErrInvalidDestination):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, withdrawservice.ErrInsufficientPoints):
			utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, withdrawservice.ErrAlreadyPending):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, withdrawservice.ErrBlocked):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, pg.ErrContention):
			w.Header().Set("Retry-After", "1")
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WithdrawResponseDTO{
		RequestID:  request.ID,
		PointsCost: request.PointsCost,
		Status:     request.Status,
	})
}

// GetWithdrawals godoc
//
//	@Summary		List withdrawals
//	@Description	All withdrawal requests of the authenticated user
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.WithdrawalDTO
//	@Success		204	"No withdrawals"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet/withdrawals [get]
func (h *WalletHandler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(pkgauth.UserIDKey).(int)

	requests, err := h.withdrawService.List(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(requests) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	response := make([]dto.WithdrawalDTO, 0, len(requests))
	for _, request := range requests {
		response = append(response, dto.WithdrawalDTO{
			ID:         request.ID,
			Amount:     request.AmountCurrency,
			PointsCost: request.PointsCost,
			Status:     request.Status,
			CreatedAt:  request.CreatedAt,
			UpdatedAt:  request.UpdatedAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}
