package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/staypoint/internal/accounting"
	"github.com/smallbiznis/staypoint/internal/apikey"
	"github.com/smallbiznis/staypoint/internal/audit"
	"github.com/smallbiznis/staypoint/internal/booking"
	"github.com/smallbiznis/staypoint/internal/clock"
	"github.com/smallbiznis/staypoint/internal/config"
	"github.com/smallbiznis/staypoint/internal/folio"
	"github.com/smallbiznis/staypoint/internal/observability"
	"github.com/smallbiznis/staypoint/internal/ratelimit"
	"github.com/smallbiznis/staypoint/internal/revenue"
	"github.com/smallbiznis/staypoint/internal/room"
	"github.com/smallbiznis/staypoint/internal/server"
	"github.com/smallbiznis/staypoint/internal/tasks"
	"github.com/smallbiznis/staypoint/pkg/db"
	"go.uber.org/fx"
)

// The machine-facing deployable: API-key auth only, no staff surface, no
// migrations. Schema management stays with the monolith.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		tasks.Module,

		audit.Module,
		apikey.Module,
		room.Module,
		booking.Module,
		folio.Module,
		revenue.Module,
		accounting.Module,
		ratelimit.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterMachineRoutes()
		}),
		fx.Invoke(server.RunHTTP),
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
