package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/pkg/repository"
)

type RepositoryParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Repository struct {
	db           *gorm.DB
	log          *zap.Logger
	settingsrepo repository.Repository[domain.Settings]
}

func NewRepository(p RepositoryParam) domain.Repository {
	return &Repository{
		db:           p.DB,
		log:          p.Log.Named("compliance.repository"),
		settingsrepo: repository.ProvideStore[domain.Settings](p.DB),
	}
}

func (r *Repository) Get(ctx context.Context, orgID snowflake.ID) (*domain.Settings, error) {
	settings, err := r.settingsrepo.FindOne(ctx, &domain.Settings{OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, domain.ErrNotFound
	}
	return settings, nil
}

func (r *Repository) Save(ctx context.Context, settings *domain.Settings) error {
	if settings.PreviousInvoiceHash == "" {
		settings.PreviousInvoiceHash = domain.ZeroHash
	}
	return r.settingsrepo.Save(ctx, settings)
}

// CommitChain advances the hash chain by one invoice. The sequence guard in
// the WHERE clause makes the read-compute-write cycle safe: a row that moved
// since the snapshot was read matches nothing, and the caller gets
// ErrChainConflict instead of a silently forked chain.
func (r *Repository) CommitChain(ctx context.Context, orgID snowflake.ID, fromSequence uint64, newHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.Settings{}).
		Where("org_id = ? AND invoice_sequence = ?", orgID, fromSequence).
		Updates(map[string]any{
			"invoice_sequence":      fromSequence + 1,
			"previous_invoice_hash": newHash,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("chain commit lost the sequence race",
			zap.Int64("org_id", int64(orgID)),
			zap.Uint64("from_sequence", fromSequence),
		)
		return fmt.Errorf("%w: sequence %d already advanced", domain.ErrChainConflict, fromSequence)
	}
	return nil
}

func (r *Repository) SaveComplianceCredential(ctx context.Context, orgID snowflake.ID, cred domain.Credential, requestID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Settings{}).
		Where("org_id = ?", orgID).
		Updates(map[string]any{
			"compliance_token":      cred.Token,
			"compliance_secret":     cred.Secret,
			"compliance_request_id": requestID,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveProductionCredential stores the clearance-grade credential and forces
// the tenant onto phase 2 in the same write.
func (r *Repository) SaveProductionCredential(ctx context.Context, orgID snowflake.ID, cred domain.Credential) error {
	res := r.db.WithContext(ctx).Model(&domain.Settings{}).
		Where("org_id = ?", orgID).
		Updates(map[string]any{
			"production_token":  cred.Token,
			"production_secret": cred.Secret,
			"scheme_tier":       domain.TierPhase2,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
