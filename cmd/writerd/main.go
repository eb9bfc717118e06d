package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/whoneedsawriter/platform/internal/clock"
	"github.com/whoneedsawriter/platform/internal/config"
	"github.com/whoneedsawriter/platform/internal/logger"
	"github.com/whoneedsawriter/platform/internal/metrics"
	"github.com/whoneedsawriter/platform/internal/migration"
	"github.com/whoneedsawriter/platform/internal/scheduler"
	"github.com/whoneedsawriter/platform/internal/server"
	"github.com/whoneedsawriter/platform/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
