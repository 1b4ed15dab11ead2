package domain

// OnboardingState is the credential-exchange lifecycle position of a tenant,
// fully derivable from which credential pairs are present in Settings.
type OnboardingState string

const (
	OnboardingNotStarted       OnboardingState = "not_started"
	OnboardingComplianceIssued OnboardingState = "compliance_issued"
	OnboardingProductionReady  OnboardingState = "production_ready"
)

// OnboardingEvent triggers a state transition.
type OnboardingEvent string

const (
	EventIssueCompliance OnboardingEvent = "issue_compliance"
	EventIssueProduction OnboardingEvent = "issue_production"
)

// OnboardingTransition defines a valid state change: an event moves a tenant
// from Src to Dst. Transitions are one-directional; there is no downgrade.
type OnboardingTransition struct {
	Event OnboardingEvent
	Src   OnboardingState
	Dst   OnboardingState
}

// OnboardingTransitions defines all valid credential-exchange state changes.
// Consumed by the fsm-backed validator in the onboarding package.
var OnboardingTransitions = []OnboardingTransition{
	{Event: EventIssueCompliance, Src: OnboardingNotStarted, Dst: OnboardingComplianceIssued},
	{Event: EventIssueProduction, Src: OnboardingComplianceIssued, Dst: OnboardingProductionReady},
}

// OnboardingState derives the current state from the stored credentials.
func (s *Settings) OnboardingState() OnboardingState {
	switch {
	case s.ProductionCredential() != nil:
		return OnboardingProductionReady
	case s.ComplianceCredential() != nil:
		return OnboardingComplianceIssued
	default:
		return OnboardingNotStarted
	}
}
