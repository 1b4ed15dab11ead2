package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	compliancedomain "github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/internal/config"
	organizationdomain "github.com/smallbiznis/fatoora/internal/organization/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and sqlite run from the model definitions; versioned SQL
		// only exists for the postgres deployment target.
		return conn.AutoMigrate(
			&organizationdomain.Organization{},
			&compliancedomain.Settings{},
		)
	}),
)
