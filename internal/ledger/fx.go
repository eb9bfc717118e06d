package ledger

import (
	"github.com/whoneedsawriter/platform/internal/ledger/repository"
	"github.com/whoneedsawriter/platform/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
