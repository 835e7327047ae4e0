package auth

import (
	"github.com/railzwaylabs/waterline/internal/auth/repository"
	"github.com/railzwaylabs/waterline/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
