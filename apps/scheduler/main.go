package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/bootstrap"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/railzwaylabs/waterline/internal/customer"
	"github.com/railzwaylabs/waterline/internal/delivery"
	"github.com/railzwaylabs/waterline/internal/invoice"
	"github.com/railzwaylabs/waterline/internal/observability"
	"github.com/railzwaylabs/waterline/internal/scheduler"
	"github.com/railzwaylabs/waterline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		// The delivery engine and the repositories it writes through.
		customer.Module,
		invoice.Module,
		delivery.Module,

		scheduler.Module,
		fx.Invoke(StartScheduler),
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

func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.RunForever(ctx); err != nil {
					log.Error("scheduler exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
