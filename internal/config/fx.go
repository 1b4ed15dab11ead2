package config

import "go.uber.org/fx"

// Module provides application and compliance configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewComplianceConfigHolder),
)
