package product

import (
	"github.com/railzwaylabs/waterline/internal/product/repository"
	"github.com/railzwaylabs/waterline/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
