package repo

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	accountrepo "github.com/playvault/playvault/internal/repo/account-repo"
	ledgerrepo "github.com/playvault/playvault/internal/repo/ledger-repo"
	sessionrepo "github.com/playvault/playvault/internal/repo/session-repo"
	withdrawalrepo "github.com/playvault/playvault/internal/repo/withdrawal-repo"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockDB.Close()

	repo := New(mockDB)

	assert.NotNil(t, repo.AccountRepo)
	assert.NotNil(t, repo.SessionRepo)
	assert.NotNil(t, repo.LedgerRepo)
	assert.NotNil(t, repo.WithdrawalRepo)

	assert.IsType(t, &accountrepo.Repository{}, repo.AccountRepo)
	assert.IsType(t, &sessionrepo.Repository{}, repo.SessionRepo)
	assert.IsType(t, &ledgerrepo.Repository{}, repo.LedgerRepo)
	assert.IsType(t, &withdrawalrepo.Repository{}, repo.WithdrawalRepo)

	if err := mockDB.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
