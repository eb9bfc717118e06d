package batch

import (
	"go.uber.org/fx"

	"github.com/whoneedsawriter/platform/internal/batch/repository"
	"github.com/whoneedsawriter/platform/internal/batch/service"
)

var Module = fx.Module("batch.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
