package generator

import (
	"go.uber.org/fx"

	"github.com/whoneedsawriter/platform/internal/generator/backend"
	"github.com/whoneedsawriter/platform/internal/generator/service"
)

var Module = fx.Module("generator.service",
	fx.Provide(backend.New),
	fx.Provide(service.New),
)
