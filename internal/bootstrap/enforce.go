package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EnforceSchemaGate fails startup when the database schema does not match the
// migrations embedded in this binary.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := gate.MustBeActive(ctx); err != nil {
				log.Error("schema gate rejected startup",
					zap.String("expected_version", gate.Expected().Version),
					zap.Error(err),
				)
				return err
			}
			return nil
		},
	})
}
