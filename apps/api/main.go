package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/auth"
	"github.com/railzwaylabs/waterline/internal/authz"
	"github.com/railzwaylabs/waterline/internal/bootstrap"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/railzwaylabs/waterline/internal/customer"
	"github.com/railzwaylabs/waterline/internal/delivery"
	"github.com/railzwaylabs/waterline/internal/invoice"
	"github.com/railzwaylabs/waterline/internal/observability"
	"github.com/railzwaylabs/waterline/internal/product"
	"github.com/railzwaylabs/waterline/internal/redis"
	"github.com/railzwaylabs/waterline/internal/server"
	"github.com/railzwaylabs/waterline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		auth.Module,
		authz.Module,
		customer.Module,
		product.Module,
		invoice.Module,
		delivery.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
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
