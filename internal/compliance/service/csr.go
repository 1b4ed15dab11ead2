package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

// certificateTemplate returns the certificate-type value the authority
// expects for the target environment.
func certificateTemplate(env domain.Environment) string {
	switch env {
	case domain.EnvironmentProduction:
		return "ZATCA-Code-Signing"
	case domain.EnvironmentSimulation:
		return "PREZATCA-Code-Signing"
	default:
		return "TSTZATCA-Code-Signing"
	}
}

// CSRSubjectConfig derives the structured subject an external CSR tool needs
// from the tenant settings. Key generation and signing stay outside this
// subsystem.
func (s *Service) CSRSubjectConfig(ctx context.Context, orgID snowflake.ID) (*domain.CSRSubject, error) {
	settings, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := settings.ValidateForQR(); err != nil {
		return nil, err
	}

	cfg := s.holder.Current()

	address := strings.TrimSpace(strings.Join([]string{
		settings.BuildingNumber,
		settings.StreetName,
		settings.District,
		settings.City,
	}, " "))

	return &domain.CSRSubject{
		CommonName:        settings.SellerName,
		SerialNumber:      fmt.Sprintf("1-fatoora|2-1|3-%d", orgID),
		OrganizationID:    settings.VATNumber,
		OrganizationUnit:  settings.District,
		Organization:      settings.SellerName,
		Country:           cfg.CountryCode,
		InvoiceType:       "1100",
		Location:          settings.City,
		CertificateType:   certificateTemplate(settings.Environment),
		RegisteredAddress: address,
		BusinessCategory:  settings.BusinessCategory,
	}, nil
}
