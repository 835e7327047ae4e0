package invoice

import (
	"github.com/railzwaylabs/waterline/internal/invoice/repository"
	"github.com/railzwaylabs/waterline/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
