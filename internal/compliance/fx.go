// Package compliance assembles the tax-invoice compliance engine.
package compliance

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/fatoora/internal/compliance/authority"
	"github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/internal/compliance/onboarding"
	"github.com/smallbiznis/fatoora/internal/compliance/repository"
	"github.com/smallbiznis/fatoora/internal/compliance/service"
	"github.com/smallbiznis/fatoora/internal/config"
)

// Module wires the compliance repository, authority client, onboarding
// validator and service into the fx graph.
var Module = fx.Module("compliance",
	fx.Provide(
		repository.NewRepository,
		provideAuthorityConfig,
		authority.NewClient,
		onboarding.New,
		service.NewService,
	),
)

func provideAuthorityConfig(holder *config.ComplianceConfigHolder) authority.Config {
	cfg := holder.Current()

	overrides := make(map[domain.Environment]string, len(cfg.EndpointOverrides))
	for env, base := range cfg.EndpointOverrides {
		overrides[domain.Environment(env)] = base
	}

	return authority.Config{
		Timeout:   cfg.AuthorityTimeout,
		Overrides: overrides,
	}
}
