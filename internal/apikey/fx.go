package apikey

import (
	"go.uber.org/fx"

	"github.com/whoneedsawriter/platform/internal/apikey/repository"
	"github.com/whoneedsawriter/platform/internal/apikey/service"
	"github.com/whoneedsawriter/platform/internal/cache"
)

var Module = fx.Module("apikey.service",
	cache.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
