package delivery

import (
	"github.com/railzwaylabs/waterline/internal/delivery/repository"
	"github.com/railzwaylabs/waterline/internal/delivery/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
