package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/fatoora/internal/compliance/chain"
	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Settings{}))

	return NewRepository(RepositoryParam{DB: db, Log: zap.NewNop()})
}

func seedSettings(t *testing.T, repo domain.Repository, orgID snowflake.ID) *domain.Settings {
	t.Helper()

	settings := &domain.Settings{
		OrgID:       orgID,
		Enabled:     true,
		VATNumber:   "300000000000003",
		SellerName:  "Acme Trading",
		Environment: domain.EnvironmentSandbox,
		SchemeTier:  domain.TierPhase1,
	}
	require.NoError(t, repo.Save(context.Background(), settings))
	return settings
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), snowflake.ID(99))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveInitializesChainSentinel(t *testing.T) {
	repo := newTestRepo(t)
	seedSettings(t, repo, snowflake.ID(1))

	stored, err := repo.Get(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.InvoiceSequence)
	assert.Equal(t, domain.ZeroHash, stored.PreviousInvoiceHash)
	assert.Equal(t, domain.ZeroHash, stored.ChainPointer())
}

func TestCommitChainAdvances(t *testing.T) {
	repo := newTestRepo(t)
	seedSettings(t, repo, snowflake.ID(1))

	hash := chain.DocumentHash([]byte("<Invoice/>"))
	require.NoError(t, repo.CommitChain(context.Background(), snowflake.ID(1), 0, hash))

	stored, err := repo.Get(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.InvoiceSequence)
	assert.Equal(t, hash, stored.PreviousInvoiceHash)
}

func TestCommitChainConflictOnStaleSequence(t *testing.T) {
	repo := newTestRepo(t)
	seedSettings(t, repo, snowflake.ID(1))

	hash := chain.DocumentHash([]byte("<Invoice/>"))
	require.NoError(t, repo.CommitChain(context.Background(), snowflake.ID(1), 0, hash))

	// A second commit from the same snapshot must not fork the chain.
	err := repo.CommitChain(context.Background(), snowflake.ID(1), 0, chain.DocumentHash([]byte("<Invoice>other</Invoice>")))
	assert.ErrorIs(t, err, domain.ErrChainConflict)

	stored, err := repo.Get(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.InvoiceSequence)
	assert.Equal(t, hash, stored.PreviousInvoiceHash)
}

func TestSaveComplianceCredential(t *testing.T) {
	repo := newTestRepo(t)
	seedSettings(t, repo, snowflake.ID(1))

	cred := domain.Credential{Token: "ctok", Secret: "csec"}
	require.NoError(t, repo.SaveComplianceCredential(context.Background(), snowflake.ID(1), cred, "42"))

	stored, err := repo.Get(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	require.NotNil(t, stored.ComplianceCredential())
	assert.Equal(t, cred, *stored.ComplianceCredential())
	assert.Equal(t, domain.OnboardingComplianceIssued, stored.OnboardingState())
	assert.Equal(t, domain.TierPhase1, stored.SchemeTier)
}

func TestSaveProductionCredentialForcesPhase2(t *testing.T) {
	repo := newTestRepo(t)
	seedSettings(t, repo, snowflake.ID(1))

	require.NoError(t, repo.SaveComplianceCredential(context.Background(), snowflake.ID(1), domain.Credential{Token: "c", Secret: "s"}, "42"))
	require.NoError(t, repo.SaveProductionCredential(context.Background(), snowflake.ID(1), domain.Credential{Token: "p", Secret: "ps"}))

	stored, err := repo.Get(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	assert.Equal(t, domain.TierPhase2, stored.SchemeTier)
	assert.Equal(t, domain.OnboardingProductionReady, stored.OnboardingState())
}

func TestCredentialWriteRequiresExistingSettings(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveComplianceCredential(context.Background(), snowflake.ID(7), domain.Credential{Token: "c", Secret: "s"}, "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
