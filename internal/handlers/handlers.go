package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/playvault/playvault/docs"
	"github.com/playvault/playvault/internal/guard"
	adminhandlers "github.com/playvault/playvault/internal/handlers/admin"
	authhandlers "github.com/playvault/playvault/internal/handlers/auth"
	sessionhandlers "github.com/playvault/playvault/internal/handlers/session"
	wallethandlers "github.com/playvault/playvault/internal/handlers/wallet"
	"github.com/playvault/playvault/internal/service"
	"github.com/playvault/playvault/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type SessionHandler interface {
	StartSession(w http.ResponseWriter, r *http.Request)
	Heartbeat(w http.ResponseWriter, r *http.Request)
	SubmitSession(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	GetLedger(w http.ResponseWriter, r *http.Request)
	Withdraw(w http.ResponseWriter, r *http.Request)
	GetWithdrawals(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	ListWithdrawals(w http.ResponseWriter, r *http.Request)
	ApproveWithdrawal(w http.ResponseWriter, r *http.Request)
	RejectWithdrawal(w http.ResponseWriter, r *http.Request)
	MarkPaid(w http.ResponseWriter, r *http.Request)
	BlockAccount(w http.ResponseWriter, r *http.Request)
	UnblockAccount(w http.ResponseWriter, r *http.Request)
	AuditAccount(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler    AuthHandler
	SessionHandler SessionHandler
	WalletHandler  WalletHandler
	AdminHandler   AdminHandler
}

func New(s *service.Services, g *guard.Guard) *Handlers {
	return &Handlers{
		AuthHandler:    authhandlers.New(s.AccountService, g),
		SessionHandler: sessionhandlers.New(s.SessionService, g),
		WalletHandler:  wallethandlers.New(s.AccountService, s.WithdrawService, g),
		AdminHandler:   adminhandlers.New(s.WithdrawService, s.AccountService),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.AuthHandler.Register)
			r.Post("/login", h.AuthHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			r.Route("/session", func(r chi.Router) {
				r.Post("/start", h.SessionHandler.StartSession)
				r.Post("/{sessionID}/heartbeat", h.SessionHandler.Heartbeat)
				r.Post("/{sessionID}/submit", h.SessionHandler.SubmitSession)
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.WalletHandler.GetWallet)
				r.Get("/ledger", h.WalletHandler.GetLedger)
				r.Post("/withdraw", h.WalletHandler.Withdraw)
				r.Get("/withdrawals", h.WalletHandler.GetWithdrawals)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware, auth.AdminMiddleware)
			r.Route("/admin", func(r chi.Router) {
				r.Get("/withdrawals", h.AdminHandler.ListWithdrawals)
				r.Post("/withdrawals/{requestID}/approve", h.AdminHandler.ApproveWithdrawal)
				r.Post("/withdrawals/{requestID}/reject", h.AdminHandler.RejectWithdrawal)
				r.Post("/withdrawals/{requestID}/paid", h.AdminHandler.MarkPaid)
				r.Post("/accounts/{userID}/block", h.AdminHandler.BlockAccount)
				r.Post("/accounts/{userID}/unblock", h.AdminHandler.UnblockAccount)
				r.Get("/accounts/{userID}/audit", h.AdminHandler.AuditAccount)
			})
		})
	})

	return r
}
