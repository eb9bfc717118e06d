package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	apikeydomain "github.com/whoneedsawriter/platform/internal/apikey/domain"
	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
	"github.com/whoneedsawriter/platform/internal/auth"
	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	"github.com/whoneedsawriter/platform/internal/config"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&ledgerdomain.User{},
				&auth.Session{},
				&apikeydomain.APIKey{},
				&batchdomain.Batch{},
				&articledomain.ArticleJob{},
				&articledomain.PendingArticleJob{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
