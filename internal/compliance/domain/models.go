// Package domain contains the persistence model and contracts for the
// tax-invoice compliance engine.
package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Environment selects which authority endpoint family a tenant targets.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentSimulation Environment = "simulation"
	EnvironmentProduction Environment = "production"
)

// SchemeTier is the compliance phase a tenant operates under.
// Phase 1 is QR-only; phase 2 adds XML generation and submission.
type SchemeTier string

const (
	TierPhase1 SchemeTier = "phase1"
	TierPhase2 SchemeTier = "phase2"
)

// ZeroHash is the chain pointer embedded in the first invoice of a tenant:
// 32 zero bytes, base64-encoded.
var ZeroHash = base64.StdEncoding.EncodeToString(make([]byte, sha256.Size))

// Settings is the per-tenant compliance configuration. This subsystem is the
// only writer of invoice_sequence, previous_invoice_hash, and the credential
// columns; everything else is settings CRUD.
type Settings struct {
	OrgID snowflake.ID `gorm:"primaryKey" json:"org_id"`

	Enabled       bool `gorm:"not null;default:false" json:"enabled"`
	ShowOnInvoice bool `gorm:"column:show_on_invoice;not null;default:false" json:"show_on_invoice"`

	VATNumber              string `gorm:"column:vat_number;type:text;not null" json:"vat_number"`
	CommercialRegistration string `gorm:"column:commercial_registration;type:text;not null" json:"commercial_registration"`
	SellerName             string `gorm:"column:seller_name;type:text;not null" json:"seller_name"`
	BusinessCategory       string `gorm:"column:business_category;type:text" json:"business_category"`

	StreetName     string `gorm:"column:street_name;type:text" json:"street_name"`
	BuildingNumber string `gorm:"column:building_number;type:text" json:"building_number"`
	District       string `gorm:"column:district;type:text" json:"district"`
	City           string `gorm:"column:city;type:text" json:"city"`
	PostalCode     string `gorm:"column:postal_code;type:text" json:"postal_code"`
	PlotID         string `gorm:"column:plot_id;type:text" json:"plot_id"`

	Environment Environment `gorm:"type:text;not null;default:'sandbox'" json:"environment"`
	SchemeTier  SchemeTier  `gorm:"column:scheme_tier;type:text;not null;default:'phase1'" json:"scheme_tier"`

	// Hash-chain state. InvoiceSequence starts at 0 and advances by exactly 1
	// per committed invoice; PreviousInvoiceHash holds the sha256 of the last
	// rendered document, or ZeroHash while the sequence is 0.
	InvoiceSequence     uint64 `gorm:"column:invoice_sequence;not null;default:0" json:"invoice_sequence"`
	PreviousInvoiceHash string `gorm:"column:previous_invoice_hash;type:text;not null" json:"previous_invoice_hash"`

	ComplianceToken     *string `gorm:"column:compliance_token;type:text" json:"-"`
	ComplianceSecret    *string `gorm:"column:compliance_secret;type:text" json:"-"`
	ComplianceRequestID *string `gorm:"column:compliance_request_id;type:text" json:"-"`
	ProductionToken     *string `gorm:"column:production_token;type:text" json:"-"`
	ProductionSecret    *string `gorm:"column:production_secret;type:text" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Settings) TableName() string { return "compliance_settings" }

// Credential is an opaque token + shared secret pair issued by the authority.
type Credential struct {
	Token  string
	Secret string
}

// ComplianceCredential returns the first-tier credential, or nil.
func (s *Settings) ComplianceCredential() *Credential {
	if s.ComplianceToken == nil || s.ComplianceSecret == nil {
		return nil
	}
	return &Credential{Token: *s.ComplianceToken, Secret: *s.ComplianceSecret}
}

// ProductionCredential returns the clearance-grade credential, or nil.
func (s *Settings) ProductionCredential() *Credential {
	if s.ProductionToken == nil || s.ProductionSecret == nil {
		return nil
	}
	return &Credential{Token: *s.ProductionToken, Secret: *s.ProductionSecret}
}

// ChainPointer is the previous-hash value the next invoice must embed.
func (s *Settings) ChainPointer() string {
	if s.InvoiceSequence == 0 || s.PreviousInvoiceHash == "" {
		return ZeroHash
	}
	return s.PreviousInvoiceHash
}

// ValidateForQR checks the fields a QR payload requires.
func (s *Settings) ValidateForQR() error {
	switch {
	case s.VATNumber == "":
		return configurationMissing("vat_number")
	case s.SellerName == "":
		return configurationMissing("seller_name")
	}
	return nil
}

// ValidateForGeneration checks the fields required before any invoice
// artifact can be produced.
func (s *Settings) ValidateForGeneration() error {
	switch {
	case s.VATNumber == "":
		return configurationMissing("vat_number")
	case s.SellerName == "":
		return configurationMissing("seller_name")
	case s.StreetName == "", s.BuildingNumber == "", s.District == "", s.City == "", s.PostalCode == "":
		return configurationMissing("postal_address")
	}
	return nil
}

// InvoiceType distinguishes standard (B2B) from simplified (B2C) invoices.
type InvoiceType string

const (
	InvoiceTypeStandard   InvoiceType = "standard"
	InvoiceTypeSimplified InvoiceType = "simplified"
)

// TypeCode returns the UBL invoice type code for the type.
func (t InvoiceType) TypeCode() string {
	if t == InvoiceTypeSimplified {
		return "381"
	}
	return "388"
}

// Subcode returns the transaction subtype code carried as the type code's
// name attribute.
func (t InvoiceType) Subcode() string {
	if t == InvoiceTypeSimplified {
		return "02"
	}
	return "01"
}

// Valid reports whether t is a known invoice type.
func (t InvoiceType) Valid() bool {
	return t == InvoiceTypeStandard || t == InvoiceTypeSimplified
}

// Address is a structured postal address.
type Address struct {
	StreetName     string `json:"street_name"`
	BuildingNumber string `json:"building_number"`
	District       string `json:"district"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	PlotID         string `json:"plot_id,omitempty"`
	CountryCode    string `json:"country_code"`
}

// Party is a seller or buyer snapshot embedded in an invoice document.
type Party struct {
	Name                   string  `json:"name"`
	VATNumber              string  `json:"vat_number"`
	CommercialRegistration string  `json:"commercial_registration,omitempty"`
	Address                Address `json:"address"`
}

// LineItem is one invoice line.
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// InvoiceArtifact is the ephemeral model an invoice document is rendered
// from. It is never persisted; only its hash and sequence survive in
// Settings, forming the chain.
type InvoiceArtifact struct {
	InvoiceNumber string
	UUID          string
	IssuedAt      time.Time
	Type          InvoiceType
	Currency      string

	Seller Party
	Buyer  *Party // standard invoices only
	Lines  []LineItem

	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal

	Sequence     uint64
	PreviousHash string
}

// SellerParty builds the seller snapshot from the tenant settings.
func (s *Settings) SellerParty(countryCode string) Party {
	return Party{
		Name:                   s.SellerName,
		VATNumber:              s.VATNumber,
		CommercialRegistration: s.CommercialRegistration,
		Address: Address{
			StreetName:     s.StreetName,
			BuildingNumber: s.BuildingNumber,
			District:       s.District,
			City:           s.City,
			PostalCode:     s.PostalCode,
			PlotID:         s.PlotID,
			CountryCode:    countryCode,
		},
	}
}
