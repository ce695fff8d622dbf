package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fundcustody/pkg/config"
	"fundcustody/pkg/db"
	"fundcustody/pkg/gen"
	"fundcustody/pkg/health"
	"fundcustody/pkg/logger"
	"fundcustody/pkg/redis"
	"fundcustody/pkg/server"
	"fundcustody/pkg/task"
	"fundcustody/services/fund"
	"fundcustody/services/oracle"
	"fundcustody/services/token"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		fx.Invoke(migrate),
		redis.Module,
		gen.Module,
		task.Client,
		task.Server,
		oracle.Module,
		token.Module,
		fund.Module,
		fund.TaskModule,
		health.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&fund.Fund{},
		&fund.Custody{},
		&fund.Ledger{},
		&fund.UserLedger{},
		&fund.SettlementEntry{},
		&token.Mint{},
		&token.Account{},
		&oracle.PriceRecord{},
	)
}
