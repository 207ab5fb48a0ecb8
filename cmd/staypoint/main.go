package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/staypoint/internal/clock"
	"github.com/smallbiznis/staypoint/internal/migration"
	"github.com/smallbiznis/staypoint/internal/observability"
	"github.com/smallbiznis/staypoint/internal/server"
	"github.com/smallbiznis/staypoint/internal/tasks"
	"github.com/smallbiznis/staypoint/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		tasks.Module,
		migration.Module,
		server.Module,
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
