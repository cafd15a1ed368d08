package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smartcontab/fiscalcore/internal/config"
	"github.com/smartcontab/fiscalcore/internal/migration"
	"github.com/smartcontab/fiscalcore/internal/observability"
	"github.com/smartcontab/fiscalcore/internal/server"
	"github.com/smartcontab/fiscalcore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		server.Module,

		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
