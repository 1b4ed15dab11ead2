package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	orderdomain "github.com/smallbiznis/fatoora/internal/order/domain"
)

// QRInput carries the values encoded into a phase-1 QR payload when no order
// record backs the request (custom totals).
type QRInput struct {
	Timestamp time.Time       `json:"timestamp"`
	Total     decimal.Decimal `json:"total"`
	VATTotal  decimal.Decimal `json:"vat_total"`
}

// GeneratedInvoice is the result of a phase-2 generation: the rendered XML,
// its chain hash, and the identifiers a later submission needs.
type GeneratedInvoice struct {
	XML           []byte `json:"xml"`
	Hash          string `json:"hash"`
	UUID          string `json:"uuid"`
	InvoiceNumber string `json:"invoice_number"`
	Sequence      uint64 `json:"sequence"`
	QR            string `json:"qr"`
}

// Submission packages a previously generated invoice for the authority.
type Submission struct {
	UUID        string `json:"uuid"`
	InvoiceHash string `json:"invoice_hash"`
	Invoice     []byte `json:"invoice"`
}

// SubmissionResult is the authority's verdict on a reporting or clearance
// call. Non-2xx responses surface as ErrAuthorityRejected, not as a result.
type SubmissionResult struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	ClearedXML []byte          `json:"cleared_xml,omitempty"`
}

// CredentialIssuance is the outcome of a credential request against the
// authority.
type CredentialIssuance struct {
	Credential Credential
	RequestID  string
	Raw        json.RawMessage
}

// CSRSubject holds the structured subject fields fed to an external
// CSR-generation tool. This subsystem never generates keys or signs.
type CSRSubject struct {
	CommonName        string `json:"common_name"`
	SerialNumber      string `json:"serial_number"`
	OrganizationID    string `json:"organization_id"`
	OrganizationUnit  string `json:"organization_unit"`
	Organization      string `json:"organization"`
	Country           string `json:"country"`
	InvoiceType       string `json:"invoice_type"`
	Location          string `json:"location"`
	CertificateType   string `json:"certificate_type"`
	RegisteredAddress string `json:"registered_address"`
	BusinessCategory  string `json:"business_category"`
}

// Authority is the external tax-authority API: two credential-issuance calls
// and two submission channels, per environment. Implementations own request
// construction and response interpretation only; no retries.
type Authority interface {
	RequestComplianceCredential(ctx context.Context, env Environment, csr, otp string) (*CredentialIssuance, error)
	RequestProductionCredential(ctx context.Context, env Environment, cred Credential, requestID string) (*CredentialIssuance, error)
	CheckInvoiceCompliance(ctx context.Context, env Environment, cred Credential, sub Submission) (*SubmissionResult, error)
	Report(ctx context.Context, env Environment, cred Credential, sub Submission) (*SubmissionResult, error)
	Clear(ctx context.Context, env Environment, cred Credential, sub Submission) (*SubmissionResult, error)
}

// Repository persists Settings. CommitChain is the single chain-mutating
// operation; it must fail with ErrChainConflict when the stored sequence no
// longer matches fromSequence.
type Repository interface {
	Get(ctx context.Context, orgID snowflake.ID) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
	CommitChain(ctx context.Context, orgID snowflake.ID, fromSequence uint64, newHash string) error
	SaveComplianceCredential(ctx context.Context, orgID snowflake.ID, cred Credential, requestID string) error
	SaveProductionCredential(ctx context.Context, orgID snowflake.ID, cred Credential) error
}

// Service is the compliance engine surface exposed to the HTTP layer.
type Service interface {
	GetSettings(ctx context.Context, orgID snowflake.ID) (*Settings, error)
	UpsertSettings(ctx context.Context, settings *Settings) (*Settings, error)

	GenerateQR(ctx context.Context, orgID snowflake.ID, in QRInput) (string, error)
	GenerateQRFromOrder(ctx context.Context, orgID snowflake.ID, order orderdomain.Order) (string, error)
	GenerateInvoice(ctx context.Context, orgID snowflake.ID, order orderdomain.Order, typ InvoiceType) (*GeneratedInvoice, error)

	SubmitComplianceCheck(ctx context.Context, orgID snowflake.ID, sub Submission) (*SubmissionResult, error)
	SubmitReport(ctx context.Context, orgID snowflake.ID, sub Submission) (*SubmissionResult, error)
	SubmitClearance(ctx context.Context, orgID snowflake.ID, sub Submission) (*SubmissionResult, error)

	BeginComplianceOnboarding(ctx context.Context, orgID snowflake.ID, csr, otp string) (*Settings, error)
	CompleteProductionOnboarding(ctx context.Context, orgID snowflake.ID) (*Settings, error)

	CSRSubjectConfig(ctx context.Context, orgID snowflake.ID) (*CSRSubject, error)
}
