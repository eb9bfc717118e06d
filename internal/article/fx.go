package article

import (
	"go.uber.org/fx"

	"github.com/whoneedsawriter/platform/internal/article/repository"
	"github.com/whoneedsawriter/platform/internal/article/service"
)

var Module = fx.Module("article.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
