package repo

import (
	"github.com/playvault/playvault/internal/pg"
	accountrepo "github.com/playvault/playvault/internal/repo/account-repo"
	ledgerrepo "github.com/playvault/playvault/internal/repo/ledger-repo"
	sessionrepo "github.com/playvault/playvault/internal/repo/session-repo"
	withdrawalrepo "github.com/playvault/playvault/internal/repo/withdrawal-repo"
)

type Repositories struct {
	AccountRepo    *accountrepo.Repository
	SessionRepo    *sessionrepo.Repository
	LedgerRepo     *ledgerrepo.Repository
	WithdrawalRepo *withdrawalrepo.Repository
}

// New wires every repository to the same Database. Repositories never
// open transactions themselves: the connection routes statements to a
// transaction carried in the context when a service opened one.
func New(conn pg.Database) *Repositories {
	return &Repositories{
		AccountRepo:    accountrepo.New(conn),
		SessionRepo:    sessionrepo.New(conn),
		LedgerRepo:     ledgerrepo.New(conn),
		WithdrawalRepo: withdrawalrepo.New(conn),
	}
}
