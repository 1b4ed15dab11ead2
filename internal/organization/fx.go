package organization

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/fatoora/internal/organization/service"
)

var Module = fx.Module("organization.service",
	fx.Provide(service.NewService),
)
