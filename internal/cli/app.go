package cli

import (
	"context"
	"fmt"

	app_service "defi-risk-engine/internal/application/service"
	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/infrastructure/blockchain"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/database"
	"defi-risk-engine/internal/infrastructure/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// coreModule provides the report pipeline shared by every command
func coreModule(cfg *config.Config, log *logger.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.Aave),
		fx.Supply(&cfg.NATS),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			fx.Annotate(
				blockchain.NewAaveClient,
				fx.As(new(repository.MarketDataProvider)),
			),
			newHistoryProvider,
		),

		// Application providers
		fx.Provide(
			newReportOptions,
			app_service.NewReportApplicationService,
		),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)
}

// newHistoryProvider selects the transaction history backend.
// The Neo4J backend connects on start and disconnects on stop.
func newHistoryProvider(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	log *logger.Logger,
) (repository.TransactionHistoryProvider, error) {
	switch cfg.History.Source {
	case "", config.HistorySourceEtherscan:
		return blockchain.NewEtherscanClient(&cfg.Etherscan, log), nil

	case config.HistorySourceNeo4J:
		client := database.NewNeo4JClient(&cfg.Neo4J, log)
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close(ctx)
			},
		})
		return database.NewNeo4JTransactionHistory(client, cfg.Etherscan.TxLimit, log), nil

	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.History.Source)
	}
}

func newReportOptions(cfg *config.Config) app_service.ReportOptions {
	return app_service.ReportOptions{
		TxLimit: cfg.Etherscan.TxLimit,
		DefaultPosition: entity.LendingPosition{
			CollateralValue:      cfg.Position.CollateralUSD,
			DebtValue:            cfg.Position.DebtUSD,
			LiquidationThreshold: cfg.Position.LiquidationThreshold,
		},
	}
}
