// Package authority is the HTTP client for the external tax authority:
// credential issuance and the two invoice-submission channels.
package authority

import (
	"fmt"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

// Base URLs per environment family.
var baseURLs = map[domain.Environment]string{
	domain.EnvironmentSandbox:    "https://gw-fatoora.zatca.gov.sa/e-invoicing/developer-portal",
	domain.EnvironmentSimulation: "https://gw-fatoora.zatca.gov.sa/e-invoicing/simulation",
	domain.EnvironmentProduction: "https://gw-fatoora.zatca.gov.sa/e-invoicing/core",
}

// Operation paths relative to the environment base.
const (
	pathCompliance         = "/compliance"
	pathComplianceInvoices = "/compliance/invoices"
	pathProductionCSIDs    = "/production/csids"
	pathReporting          = "/invoices/reporting/single"
	pathClearance          = "/invoices/clearance/single"
)

// Endpoints resolves operation URLs for one environment. An override base
// replaces the built-in URL family; tests point it at a local server.
type Endpoints struct {
	overrides map[domain.Environment]string
}

// NewEndpoints builds the resolver. overrides may be nil.
func NewEndpoints(overrides map[domain.Environment]string) *Endpoints {
	return &Endpoints{overrides: overrides}
}

func (e *Endpoints) base(env domain.Environment) (string, error) {
	if e.overrides != nil {
		if u, ok := e.overrides[env]; ok && u != "" {
			return u, nil
		}
	}
	if u, ok := baseURLs[env]; ok {
		return u, nil
	}
	return "", fmt.Errorf("unknown authority environment %q", env)
}

// URL joins the environment base with an operation path.
func (e *Endpoints) URL(env domain.Environment, path string) (string, error) {
	base, err := e.base(env)
	if err != nil {
		return "", err
	}
	return base + path, nil
}
