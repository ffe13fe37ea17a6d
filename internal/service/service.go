package service

import (
	"time"

	"github.com/playvault/playvault/internal/config"
	"github.com/playvault/playvault/internal/events"
	"github.com/playvault/playvault/internal/pg"
	"github.com/playvault/playvault/internal/repo"
	"github.com/playvault/playvault/internal/service/accountservice"
	"github.com/playvault/playvault/internal/service/sessionservice"
	"github.com/playvault/playvault/internal/service/withdrawservice"
	pkgauth "github.com/playvault/playvault/pkg/auth"
)

type Services struct {
	AccountService  *accountservice.Service
	SessionService  *sessionservice.Service
	WithdrawService *withdrawservice.Service
}

func New(r *repo.Repositories, txManager pg.TXManager, activity sessionservice.ActivityChecker, publisher events.Publisher, cfg *config.Config, loc *time.Location) *Services {
	accountService := accountservice.New(r.AccountRepo, r.LedgerRepo, &pkgauth.HashService{}, &pkgauth.JWTService{}, loc)
	sessionService := sessionservice.New(r.SessionRepo, r.AccountRepo, r.LedgerRepo, txManager, activity, publisher, sessionservice.Config{
		PointsPerMinute:   cfg.PointsPerMinute,
		SessionCapMinutes: cfg.SessionCapMinutes,
		DailyLimitPoints:  cfg.DailyLimitPoints,
		Location:          loc,
	})
	withdrawService := withdrawservice.New(r.AccountRepo, r.WithdrawalRepo, r.LedgerRepo, txManager, publisher, withdrawservice.Config{
		MinWithdraw:    cfg.MinWithdraw,
		ConversionRate: cfg.ConversionRate,
		PayoutRail:     cfg.PayoutRail,
	})

	return &Services{
		AccountService:  accountService,
		SessionService:  sessionService,
		WithdrawService: withdrawService,
	}
}
