// Package service orchestrates the compliance engine: QR generation, chained
// invoice generation, authority submissions, and credential onboarding.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/fatoora/internal/compliance/chain"
	"github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/internal/compliance/onboarding"
	"github.com/smallbiznis/fatoora/internal/compliance/qr"
	"github.com/smallbiznis/fatoora/internal/compliance/ubl"
	"github.com/smallbiznis/fatoora/internal/compliance/vat"
	"github.com/smallbiznis/fatoora/internal/config"
	"github.com/smallbiznis/fatoora/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/fatoora/internal/order/domain"
)

// chainCommitAttempts bounds how often a generation is rebuilt after losing
// a sequence race to an out-of-process writer.
const chainCommitAttempts = 2

// ServiceParam collects service dependencies.
type ServiceParam struct {
	fx.In

	Repo      domain.Repository
	Authority domain.Authority
	Validator *onboarding.Validator
	Holder    *config.ComplianceConfigHolder
	Metrics   *metrics.ComplianceMetrics `optional:"true"`
	Log       *zap.Logger
}

// Service implements domain.Service.
type Service struct {
	repo      domain.Repository
	authority domain.Authority
	validator *onboarding.Validator
	holder    *config.ComplianceConfigHolder
	metrics   *metrics.ComplianceMetrics
	log       *zap.Logger

	mu    sync.Mutex
	locks map[snowflake.ID]*sync.Mutex
}

// NewService builds the compliance service.
func NewService(p ServiceParam) domain.Service {
	return &Service{
		repo:      p.Repo,
		authority: p.Authority,
		validator: p.Validator,
		holder:    p.Holder,
		metrics:   p.Metrics,
		log:       p.Log.Named("compliance.service"),
		locks:     make(map[snowflake.ID]*sync.Mutex),
	}
}

// orgLock returns the mutex serializing chain and credential mutations for
// one tenant.
func (s *Service) orgLock(orgID snowflake.ID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[orgID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[orgID] = l
	}
	return l
}

func (s *Service) GetSettings(ctx context.Context, orgID snowflake.ID) (*domain.Settings, error) {
	return s.repo.Get(ctx, orgID)
}

// UpsertSettings writes the tenant configuration. Chain state and credential
// columns are never writable through this path; existing values are carried
// over so a settings update cannot fork the ledger.
func (s *Service) UpsertSettings(ctx context.Context, settings *domain.Settings) (*domain.Settings, error) {
	lock := s.orgLock(settings.OrgID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.Get(ctx, settings.OrgID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		settings.InvoiceSequence = existing.InvoiceSequence
		settings.PreviousInvoiceHash = existing.PreviousInvoiceHash
		settings.ComplianceToken = existing.ComplianceToken
		settings.ComplianceSecret = existing.ComplianceSecret
		settings.ComplianceRequestID = existing.ComplianceRequestID
		settings.ProductionToken = existing.ProductionToken
		settings.ProductionSecret = existing.ProductionSecret
		settings.CreatedAt = existing.CreatedAt
		if settings.Environment == "" {
			settings.Environment = existing.Environment
		}
		if settings.SchemeTier == "" {
			settings.SchemeTier = existing.SchemeTier
		}
	}
	if settings.Environment == "" {
		settings.Environment = domain.EnvironmentSandbox
	}
	if settings.SchemeTier == "" {
		settings.SchemeTier = domain.TierPhase1
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, settings.OrgID)
}

// enabled loads the settings and rejects disabled tenants.
func (s *Service) enabled(ctx context.Context, orgID snowflake.ID) (*domain.Settings, error) {
	settings, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, domain.ErrDisabled
	}
	return settings, nil
}

func (s *Service) GenerateQR(ctx context.Context, orgID snowflake.ID, in domain.QRInput) (string, error) {
	settings, err := s.enabled(ctx, orgID)
	if err != nil {
		return "", err
	}
	if err := settings.ValidateForQR(); err != nil {
		return "", err
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	payload := qr.Payload{
		SellerName: settings.SellerName,
		VATNumber:  settings.VATNumber,
		Timestamp:  ts.Format(time.RFC3339),
		Total:      vat.Amount(in.Total),
		VATTotal:   vat.Amount(in.VATTotal),
	}
	return payload.Encode()
}

func (s *Service) GenerateQRFromOrder(ctx context.Context, orgID snowflake.ID, order orderdomain.Order) (string, error) {
	total := order.Total()
	_, tax := vat.SplitStandard(total)

	ts := order.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return s.GenerateQR(ctx, orgID, domain.QRInput{
		Timestamp: ts,
		Total:     total,
		VATTotal:  tax,
	})
}

// GenerateInvoice renders a chained XML invoice from the order and advances
// the tenant ledger. Generation is serialized per tenant; a sequence race
// against an out-of-process writer is retried once from a fresh snapshot.
func (s *Service) GenerateInvoice(ctx context.Context, orgID snowflake.ID, order orderdomain.Order, typ domain.InvoiceType) (*domain.GeneratedInvoice, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidInvoiceType, typ)
	}

	lock := s.orgLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < chainCommitAttempts; attempt++ {
		settings, err := s.enabled(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if settings.SchemeTier != domain.TierPhase2 {
			return nil, fmt.Errorf("%w: xml generation requires %s", domain.ErrDisabled, domain.TierPhase2)
		}
		if err := settings.ValidateForGeneration(); err != nil {
			return nil, err
		}

		generated, hash, err := s.render(settings, order, typ)
		if err != nil {
			return nil, err
		}

		if err := s.repo.CommitChain(ctx, orgID, settings.InvoiceSequence, hash); err != nil {
			if errors.Is(err, domain.ErrChainConflict) {
				if s.metrics != nil {
					s.metrics.ChainConflict()
				}
				s.log.Warn("chain commit lost sequence race, rebuilding",
					zap.Int64("org_id", int64(orgID)),
					zap.Uint64("from_sequence", settings.InvoiceSequence))
				lastErr = err
				continue
			}
			return nil, err
		}

		if s.metrics != nil {
			s.metrics.ChainCommitted()
		}
		return generated, nil
	}
	return nil, lastErr
}

// render builds the artifact, XML, hash and QR for one generation attempt
// against a settings snapshot. Pure; no ledger mutation happens here.
func (s *Service) render(settings *domain.Settings, order orderdomain.Order, typ domain.InvoiceType) (*domain.GeneratedInvoice, string, error) {
	cfg := s.holder.Current()

	currency := order.Currency
	if currency == "" {
		currency = cfg.Currency
	}

	total := order.Total()
	exclusive, tax := vat.SplitStandard(total)

	sequence := settings.InvoiceSequence + 1
	invoiceNumber := order.ReceiptNumber
	if invoiceNumber == "" {
		invoiceNumber = "INV-" + chain.FormatICV(sequence)
	}

	issuedAt := time.Now().UTC()

	artifact := domain.InvoiceArtifact{
		InvoiceNumber: invoiceNumber,
		UUID:          uuid.NewString(),
		IssuedAt:      issuedAt,
		Type:          typ,
		Currency:      currency,
		Seller:        settings.SellerParty(cfg.CountryCode),
		Buyer:         buyerParty(order.Customer, cfg.CountryCode),
		Lines: []domain.LineItem{{
			Name:      order.Description,
			Quantity:  lineQuantity(order.Quantity),
			UnitPrice: order.Price,
			LineTotal: exclusive,
			TaxAmount: tax,
		}},
		TaxTotal:     tax,
		GrandTotal:   total,
		Sequence:     sequence,
		PreviousHash: settings.ChainPointer(),
	}

	xmlBytes, err := ubl.Build(artifact)
	if err != nil {
		return nil, "", err
	}
	hash := chain.DocumentHash(xmlBytes)

	code, err := (qr.ExtendedPayload{
		Payload: qr.Payload{
			SellerName: settings.SellerName,
			VATNumber:  settings.VATNumber,
			Timestamp:  issuedAt.Format(time.RFC3339),
			Total:      vat.Amount(total),
			VATTotal:   vat.Amount(tax),
		},
		InvoiceHash: hash,
	}).Encode()
	if err != nil {
		return nil, "", err
	}

	return &domain.GeneratedInvoice{
		XML:           xmlBytes,
		Hash:          hash,
		UUID:          artifact.UUID,
		InvoiceNumber: invoiceNumber,
		Sequence:      sequence,
		QR:            code,
	}, hash, nil
}

func buyerParty(c *orderdomain.Customer, defaultCountry string) *domain.Party {
	if c == nil {
		return nil
	}
	country := c.CountryCode
	if country == "" {
		country = defaultCountry
	}
	return &domain.Party{
		Name:      c.Name,
		VATNumber: c.VATNumber,
		Address: domain.Address{
			StreetName:     c.StreetName,
			BuildingNumber: c.BuildingNumber,
			District:       c.District,
			City:           c.City,
			PostalCode:     c.PostalCode,
			CountryCode:    country,
		},
	}
}

func lineQuantity(q decimal.Decimal) decimal.Decimal {
	if q.IsZero() {
		return decimal.NewFromInt(1)
	}
	return q
}

// SubmitComplianceCheck sends a generated document through the
// certification-check channel. Available as soon as the compliance
// credential is issued, before the tenant reaches production.
func (s *Service) SubmitComplianceCheck(ctx context.Context, orgID snowflake.ID, sub domain.Submission) (*domain.SubmissionResult, error) {
	settings, err := s.enabled(ctx, orgID)
	if err != nil {
		return nil, err
	}
	cred := settings.ComplianceCredential()
	if cred == nil {
		return nil, domain.CredentialMissing("compliance")
	}

	result, err := s.authority.CheckInvoiceCompliance(ctx, settings.Environment, *cred, sub)
	s.countSubmission("compliance_check", err)
	return result, err
}

func (s *Service) SubmitReport(ctx context.Context, orgID snowflake.ID, sub domain.Submission) (*domain.SubmissionResult, error) {
	settings, err := s.enabled(ctx, orgID)
	if err != nil {
		return nil, err
	}
	cred := settings.ComplianceCredential()
	if cred == nil {
		return nil, domain.CredentialMissing("compliance")
	}

	result, err := s.authority.Report(ctx, settings.Environment, *cred, sub)
	s.countSubmission("reporting", err)
	return result, err
}

func (s *Service) SubmitClearance(ctx context.Context, orgID snowflake.ID, sub domain.Submission) (*domain.SubmissionResult, error) {
	settings, err := s.enabled(ctx, orgID)
	if err != nil {
		return nil, err
	}
	cred := settings.ProductionCredential()
	if cred == nil {
		return nil, domain.CredentialMissing("production")
	}

	result, err := s.authority.Clear(ctx, settings.Environment, *cred, sub)
	s.countSubmission("clearance", err)
	return result, err
}

func (s *Service) countSubmission(channel string, err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.Submission(channel, "accepted")
	case errors.Is(err, domain.ErrAuthorityRejected):
		s.metrics.Submission(channel, "rejected")
	case errors.Is(err, domain.ErrTransportFailure):
		s.metrics.Submission(channel, "transport_error")
	}
}

// BeginComplianceOnboarding exchanges a CSR and OTP for the first-tier
// credential. The authority call runs without the tenant lock; only the
// credential write is exclusive, and the transition is re-validated against
// fresh state before writing so nothing is stored out of order.
func (s *Service) BeginComplianceOnboarding(ctx context.Context, orgID snowflake.ID, csr, otp string) (*domain.Settings, error) {
	settings, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.validator.Apply(ctx, settings.OnboardingState(), domain.EventIssueCompliance); err != nil {
		return nil, err
	}

	issuance, err := s.authority.RequestComplianceCredential(ctx, settings.Environment, csr, otp)
	if err != nil {
		return nil, err
	}

	lock := s.orgLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	fresh, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.validator.Apply(ctx, fresh.OnboardingState(), domain.EventIssueCompliance); err != nil {
		return nil, err
	}
	if err := s.repo.SaveComplianceCredential(ctx, orgID, issuance.Credential, issuance.RequestID); err != nil {
		return nil, err
	}

	s.log.Info("compliance credential issued",
		zap.Int64("org_id", int64(orgID)),
		zap.String("environment", string(settings.Environment)))
	return s.repo.Get(ctx, orgID)
}

// CompleteProductionOnboarding trades the stored compliance credential and
// request ID for the clearance-grade credential and promotes the tenant to
// the second tier. Same locking shape as BeginComplianceOnboarding: the
// authority round trip happens unlocked.
func (s *Service) CompleteProductionOnboarding(ctx context.Context, orgID snowflake.ID) (*domain.Settings, error) {
	settings, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	cred := settings.ComplianceCredential()
	if cred == nil || settings.ComplianceRequestID == nil {
		return nil, domain.CredentialMissing("compliance")
	}
	if _, err := s.validator.Apply(ctx, settings.OnboardingState(), domain.EventIssueProduction); err != nil {
		return nil, err
	}

	issuance, err := s.authority.RequestProductionCredential(ctx, settings.Environment, *cred, *settings.ComplianceRequestID)
	if err != nil {
		return nil, err
	}

	lock := s.orgLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	fresh, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.validator.Apply(ctx, fresh.OnboardingState(), domain.EventIssueProduction); err != nil {
		return nil, err
	}
	if err := s.repo.SaveProductionCredential(ctx, orgID, issuance.Credential); err != nil {
		return nil, err
	}

	s.log.Info("production credential issued",
		zap.Int64("org_id", int64(orgID)),
		zap.String("environment", string(settings.Environment)))
	return s.repo.Get(ctx, orgID)
}
