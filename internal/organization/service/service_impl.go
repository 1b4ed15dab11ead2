package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	organizationdomain "github.com/smallbiznis/fatoora/internal/organization/domain"
	"github.com/smallbiznis/fatoora/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Log   *zap.Logger
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	orgrepo repository.Repository[organizationdomain.Organization]
}

func NewService(p ServiceParam) organizationdomain.Service {
	return &Service{
		log:     p.Log.Named("organization.service"),
		genID:   p.GenID,
		orgrepo: repository.ProvideStore[organizationdomain.Organization](p.DB),
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*organizationdomain.Organization, error) {
	if id == 0 {
		return nil, organizationdomain.ErrInvalidID
	}

	org, err := s.orgrepo.FindOne(ctx, &organizationdomain.Organization{ID: id})
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, organizationdomain.ErrNotFound
	}
	return org, nil
}

func (s *Service) Create(ctx context.Context, req organizationdomain.CreateOrganizationRequest) (*organizationdomain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, organizationdomain.ErrInvalidName
	}

	org := &organizationdomain.Organization{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		SupportEmail: strings.TrimSpace(req.SupportEmail),
		CountryCode:  strings.ToUpper(strings.TrimSpace(req.CountryCode)),
		Industry:     strings.TrimSpace(req.Industry),
		Metadata:     datatypes.JSONMap{},
	}

	if err := s.orgrepo.Create(ctx, org); err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.Int64("org_id", int64(org.ID)),
		zap.String("slug", org.Slug))
	return org, nil
}
