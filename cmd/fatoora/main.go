package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/fatoora/internal/config"
	"github.com/smallbiznis/fatoora/internal/migration"
	"github.com/smallbiznis/fatoora/internal/observability"
	"github.com/smallbiznis/fatoora/internal/server"
	"github.com/smallbiznis/fatoora/pkg/db"
	"github.com/smallbiznis/fatoora/pkg/log"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
