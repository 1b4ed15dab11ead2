package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the compliance failure taxonomy. Callers branch on
// these with errors.Is; the wrapped variants below add display detail.
var (
	ErrConfigurationMissing = errors.New("configuration_missing")
	ErrCredentialMissing    = errors.New("credential_missing")
	ErrEncodingViolation    = errors.New("encoding_violation")
	ErrAuthorityRejected    = errors.New("authority_rejected")
	ErrTransportFailure     = errors.New("transport_failure")
	ErrChainConflict        = errors.New("chain_conflict")
	ErrNotFound             = errors.New("not_found")
	ErrDisabled             = errors.New("compliance_disabled")
	ErrInvalidInvoiceType   = errors.New("invalid_invoice_type")
	ErrInvalidTransition    = errors.New("invalid_onboarding_transition")
)

func configurationMissing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrConfigurationMissing, field)
}

// CredentialMissing reports an operation attempted without the required
// credential tier.
func CredentialMissing(tier string) error {
	return fmt.Errorf("%w: %s credential not issued", ErrCredentialMissing, tier)
}

// RejectionError carries the authority's structured error body for a non-2xx
// response. It is a caller-visible outcome, not a transport fault.
type RejectionError struct {
	StatusCode int
	Body       []byte
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("authority_rejected: status %d: %s", e.StatusCode, string(e.Body))
}

// Unwrap ties RejectionError into the sentinel taxonomy.
func (e *RejectionError) Unwrap() error { return ErrAuthorityRejected }

// TransportError wraps a network-level failure (timeout, DNS, reset). The
// ledger is guaranteed untouched when one of these surfaces.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport_failure: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransportFailure, e.Err} }
