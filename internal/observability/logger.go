package observability

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAtomicLevel(cfg config.Config) zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Observability.LogLevel)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	return level
}

func NewLogger(lc fx.Lifecycle, cfg config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	log = log.With(
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("version", cfg.Version),
	)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

// WatchLogLevel reloads observability.log_level whenever the config file changes.
func WatchLogLevel(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next := v.GetString("observability.log_level")
		if err := level.UnmarshalText([]byte(next)); err != nil {
			log.Warn("ignoring invalid log level", zap.String("file", e.Name), zap.String("level", next))
			return
		}
		log.Info("log level reloaded", zap.String("file", e.Name), zap.String("level", level.String()))
	})
	v.WatchConfig()
}
