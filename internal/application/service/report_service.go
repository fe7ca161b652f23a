package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/domain/service"
	"defi-risk-engine/internal/infrastructure/logger"
	"defi-risk-engine/internal/infrastructure/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report outcomes recorded in metrics
const (
	outcomeComplete = "complete"
	outcomePartial  = "partial"
	outcomeFailed   = "failed"
)

// ReportOptions holds assembler settings that stay out of the calculators
type ReportOptions struct {
	TxLimit         int
	DefaultPosition entity.LendingPosition
}

// ReportApplicationService implements ReportService interface
type ReportApplicationService struct {
	markets repository.MarketDataProvider
	history repository.TransactionHistoryProvider
	options ReportOptions
	logger  *logger.Logger
	now     func() time.Time
}

// NewReportApplicationService creates a new report application service
func NewReportApplicationService(
	markets repository.MarketDataProvider,
	history repository.TransactionHistoryProvider,
	options ReportOptions,
	logger *logger.Logger,
) service.ReportService {
	return &ReportApplicationService{
		markets: markets,
		history: history,
		options: options,
		logger:  logger.WithComponent("report-service"),
		now:     time.Now,
	}
}

// GenerateReport fetches market and wallet data concurrently and scores the wallet.
// Provider failures degrade the report instead of failing it; invalid input and
// cancellation fail it.
func (s *ReportApplicationService) GenerateReport(ctx context.Context, req entity.ReportRequest) (*entity.RiskReport, error) {
	wallet, err := entity.NormalizeAddress(req.Wallet)
	if err != nil {
		metrics.ReportsGenerated.WithLabelValues(outcomeFailed).Inc()
		return nil, err
	}

	position := s.options.DefaultPosition
	if req.Position != nil {
		position = *req.Position
	}
	if position.LiquidationThreshold == 0 {
		position.LiquidationThreshold = entity.DefaultLiquidationThreshold
	}
	if err := position.Validate(); err != nil {
		metrics.ReportsGenerated.WithLabelValues(outcomeFailed).Inc()
		return nil, err
	}

	log := s.logger.WithFields(map[string]interface{}{"wallet": wallet})
	log.Info("Generating risk report")

	report := &entity.RiskReport{
		Wallet:      wallet,
		GeneratedAt: s.now().UTC(),
		Position:    position,
	}

	var marketsErr, historyErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reserves, err := s.fetchMarkets(gctx)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			marketsErr = err
			return nil
		}
		report.Markets = reserves
		return nil
	})

	g.Go(func() error {
		txs, err := s.fetchHistory(gctx, wallet)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			historyErr = err
			return nil
		}
		report.Transactions = txs
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.ReportsGenerated.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("report generation cancelled: %w", err)
	}

	if marketsErr != nil {
		log.Warn("Market data unavailable", zap.Error(marketsErr))
		report.Warnings = append(report.Warnings, fmt.Sprintf("market data unavailable: %v", marketsErr))
	}
	if historyErr != nil {
		log.Warn("Transaction history unavailable", zap.Error(historyErr))
		report.Warnings = append(report.Warnings, fmt.Sprintf("transaction history unavailable: %v", historyErr))
	}

	health, err := service.ComputeHealthScore(report.Transactions)
	switch {
	case errors.Is(err, service.ErrInsufficientData):
		report.Warnings = append(report.Warnings, "health score unavailable: no transactions to analyze")
	case err != nil:
		report.Warnings = append(report.Warnings, fmt.Sprintf("health score unavailable: %v", err))
	default:
		report.Health = health
		metrics.HealthScores.Observe(health.Score)
	}

	report.Liquidation = service.SimulateLiquidationRisk(position)
	metrics.RiskLevels.WithLabelValues(string(report.Liquidation.RiskLevel)).Inc()

	outcome := outcomeComplete
	if len(report.Warnings) > 0 {
		outcome = outcomePartial
	}
	metrics.ReportsGenerated.WithLabelValues(outcome).Inc()

	log.Info("Risk report generated",
		zap.Int("markets", len(report.Markets)),
		zap.Int("transactions", len(report.Transactions)),
		zap.Bool("has_health", report.HasHealth()),
		zap.String("risk_level", string(report.Liquidation.RiskLevel)),
		zap.Int("warnings", len(report.Warnings)))

	return report, nil
}

// fetchMarkets returns reserves sorted by market size, largest first
func (s *ReportApplicationService) fetchMarkets(ctx context.Context) ([]entity.MarketReserve, error) {
	start := time.Now()
	reserves, err := s.markets.GetReserves(ctx)
	observeProvider(s.markets.Name(), start, err)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(reserves, func(i, j int) bool {
		return reserves[i].MarketSizeUSD.GreaterThan(reserves[j].MarketSizeUSD)
	})
	return reserves, nil
}

func (s *ReportApplicationService) fetchHistory(ctx context.Context, wallet string) ([]entity.TransactionRecord, error) {
	start := time.Now()
	txs, err := s.history.GetTransactions(ctx, wallet, s.options.TxLimit)
	observeProvider(s.history.Name(), start, err)
	return txs, err
}

func observeProvider(name string, start time.Time, err error) {
	metrics.ProviderRequests.WithLabelValues(name).Inc()
	metrics.ProviderLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(name).Inc()
	}
}
