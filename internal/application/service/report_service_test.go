package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
)

const testWallet = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

type fakeMarkets struct {
	reserves []entity.MarketReserve
	err      error
}

func (f *fakeMarkets) Name() string { return "fake-markets" }

func (f *fakeMarkets) GetReserves(ctx context.Context) ([]entity.MarketReserve, error) {
	return f.reserves, f.err
}

type fakeHistory struct {
	mu        sync.Mutex
	txs       []entity.TransactionRecord
	err       error
	gotWallet string
	gotLimit  int
	block     bool
}

func (f *fakeHistory) Name() string { return "fake-history" }

func (f *fakeHistory) GetTransactions(ctx context.Context, address string, limit int) ([]entity.TransactionRecord, error) {
	f.mu.Lock()
	f.gotWallet = address
	f.gotLimit = limit
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.txs, f.err
}

func reserve(symbol string, size int64) entity.MarketReserve {
	return entity.MarketReserve{
		Symbol:        symbol,
		Name:          symbol + " token",
		MarketSizeUSD: decimal.NewFromInt(size),
		SupplyAPYPct:  decimal.RequireFromString("1.25"),
	}
}

func successfulTxs(n int) []entity.TransactionRecord {
	txs := make([]entity.TransactionRecord, n)
	for i := range txs {
		txs[i] = entity.TransactionRecord{
			Hash:     "0x01",
			From:     testWallet,
			GasUsed:  21000,
			GasPrice: decimal.NewFromInt(20),
			Status:   entity.TxStatusSuccess,
		}
	}
	return txs
}

func newTestService(markets *fakeMarkets, history *fakeHistory) *ReportApplicationService {
	svc := NewReportApplicationService(markets, history, ReportOptions{
		TxLimit:         50,
		DefaultPosition: entity.NewLendingPosition(10000, 5000),
	}, logger.NewNopLogger()).(*ReportApplicationService)
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func TestGenerateReport_Complete(t *testing.T) {
	markets := &fakeMarkets{reserves: []entity.MarketReserve{reserve("DAI", 10), reserve("WETH", 300), reserve("USDC", 200)}}
	history := &fakeHistory{txs: successfulTxs(12)}
	svc := newTestService(markets, history)

	report, err := svc.GenerateReport(context.Background(), entity.ReportRequest{
		Wallet: strings.ToLower(testWallet),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Wallet != testWallet {
		t.Errorf("wallet = %s, want checksummed %s", report.Wallet, testWallet)
	}
	if history.gotWallet != testWallet || history.gotLimit != 50 {
		t.Errorf("history called with %s/%d", history.gotWallet, history.gotLimit)
	}
	if got := []string{report.Markets[0].Symbol, report.Markets[1].Symbol, report.Markets[2].Symbol}; got[0] != "WETH" || got[1] != "USDC" || got[2] != "DAI" {
		t.Errorf("markets not sorted by size: %v", got)
	}
	if !report.HasHealth() || report.Health.Score != 100 {
		t.Errorf("health = %+v, want score 100", report.Health)
	}
	if report.Liquidation.RiskLevel != entity.RiskLevelMedium {
		t.Errorf("risk level = %s, want MEDIUM for the default position", report.Liquidation.RiskLevel)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestGenerateReport_HistoryUnavailable(t *testing.T) {
	markets := &fakeMarkets{reserves: []entity.MarketReserve{reserve("WETH", 1)}}
	history := &fakeHistory{err: errors.New("no transactions found")}
	svc := newTestService(markets, history)

	report, err := svc.GenerateReport(context.Background(), entity.ReportRequest{Wallet: testWallet})
	if err != nil {
		t.Fatalf("provider failure must not fail the report: %v", err)
	}
	if report.HasHealth() {
		t.Errorf("health should be unavailable, got %+v", report.Health)
	}
	if len(report.Warnings) != 2 {
		t.Errorf("expected history and health warnings, got %v", report.Warnings)
	}
	if report.Liquidation.RiskLevel != entity.RiskLevelMedium {
		t.Errorf("liquidation should still be simulated, got %s", report.Liquidation.RiskLevel)
	}
}

func TestGenerateReport_MarketsUnavailable(t *testing.T) {
	svc := newTestService(&fakeMarkets{err: errors.New("graphql down")}, &fakeHistory{txs: successfulTxs(3)})

	report, err := svc.GenerateReport(context.Background(), entity.ReportRequest{Wallet: testWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Markets) != 0 {
		t.Errorf("expected no markets, got %d", len(report.Markets))
	}
	if !report.HasHealth() || report.Health.Score != 80 {
		t.Errorf("health = %+v, want low-activity score 80", report.Health)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "graphql down") {
		t.Errorf("warnings = %v", report.Warnings)
	}
}

func TestGenerateReport_CustomPosition(t *testing.T) {
	svc := newTestService(&fakeMarkets{}, &fakeHistory{txs: successfulTxs(10)})

	report, err := svc.GenerateReport(context.Background(), entity.ReportRequest{
		Wallet:   testWallet,
		Position: &entity.LendingPosition{CollateralValue: 1000, DebtValue: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Position.LiquidationThreshold != entity.DefaultLiquidationThreshold {
		t.Errorf("threshold = %v, want default", report.Position.LiquidationThreshold)
	}
	if !report.Liquidation.HealthFactor.IsInfinite() || report.Liquidation.RiskLevel != entity.RiskLevelNoDebt {
		t.Errorf("liquidation = %+v, want NO_DEBT", report.Liquidation)
	}
}

func TestGenerateReport_ExplicitZeroPosition(t *testing.T) {
	svc := newTestService(&fakeMarkets{}, &fakeHistory{txs: successfulTxs(10)})

	report, err := svc.GenerateReport(context.Background(), entity.ReportRequest{
		Wallet:   testWallet,
		Position: &entity.LendingPosition{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Position.CollateralValue != 0 || report.Position.DebtValue != 0 {
		t.Errorf("explicit zero position replaced by %+v", report.Position)
	}
	if report.Liquidation.RiskLevel != entity.RiskLevelNoDebt {
		t.Errorf("risk level = %s, want NO_DEBT", report.Liquidation.RiskLevel)
	}
}

func TestGenerateReport_InvalidInput(t *testing.T) {
	svc := newTestService(&fakeMarkets{}, &fakeHistory{})

	if _, err := svc.GenerateReport(context.Background(), entity.ReportRequest{Wallet: "not-a-wallet"}); !errors.Is(err, entity.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}

	negative := entity.NewLendingPosition(-5, 10)
	_, err := svc.GenerateReport(context.Background(), entity.ReportRequest{
		Wallet:   testWallet,
		Position: &negative,
	})
	if !errors.Is(err, entity.ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestGenerateReport_Cancelled(t *testing.T) {
	svc := newTestService(&fakeMarkets{}, &fakeHistory{block: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GenerateReport(ctx, entity.ReportRequest{Wallet: testWallet}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReportRenderer_Render(t *testing.T) {
	svc := newTestService(
		&fakeMarkets{reserves: []entity.MarketReserve{reserve("WETH", 300), reserve("USDC", 200), reserve("DAI", 10)}},
		&fakeHistory{txs: successfulTxs(12)},
	)
	report, err := svc.GenerateReport(context.Background(), entity.ReportRequest{Wallet: testWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := NewReportRenderer(2).Render(&buf, report); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"WALLET HEALTH SCORE: 100.0/100",
		"Success Rate: 100.0%",
		"Avg Gas Price: 20.00 Gwei",
		"Transactions Analyzed: 12",
		"LIQUIDATION RISK: MEDIUM",
		"Health Factor: 1.65",
		"Price can drop 39.4% before liquidation",
		"WETH",
		"USDC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "DAI") {
		t.Errorf("output should list only the top 2 markets:\n%s", out)
	}
}

func TestReportRenderer_RecentTransactions(t *testing.T) {
	txs := successfulTxs(7)
	txs[0].To = ""
	txs[1].To = "0x0000000000000000000000000000000000000001"
	txs[1].Status = entity.TxStatusFailed

	report := &entity.RiskReport{
		Wallet:       testWallet,
		Transactions: txs,
		Liquidation:  entity.LiquidationRiskAssessment{HealthFactor: entity.InfiniteHealthFactor(), RiskLevel: entity.RiskLevelNoDebt, LiquidationPriceDropPct: 100},
	}

	var buf bytes.Buffer
	if err := NewReportRenderer(0).Render(&buf, report); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"RECENT TRANSACTIONS:", "Contract", "0x00000000...", "Failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "0xd8dA6BF2..."); n != 5 {
		t.Errorf("listed %d transactions, want 5:\n%s", n, out)
	}
}

func TestReportRenderer_NoHealth(t *testing.T) {
	report := &entity.RiskReport{
		Wallet:      testWallet,
		Liquidation: entity.LiquidationRiskAssessment{HealthFactor: entity.InfiniteHealthFactor(), RiskLevel: entity.RiskLevelNoDebt, LiquidationPriceDropPct: 100},
		Warnings:    []string{"transaction history unavailable"},
	}

	var buf bytes.Buffer
	if err := NewReportRenderer(0).Render(&buf, report); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"unavailable (insufficient data)", "LIQUIDATION RISK: NO_DEBT", "Health Factor: ∞", "WARNINGS:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	wallets []string
}

func (p *recordingPublisher) Publish(ctx context.Context, report *entity.RiskReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wallets = append(p.wallets, report.Wallet)
	return nil
}

func TestReportWorkerPool_Run(t *testing.T) {
	svc := NewReportApplicationService(
		&fakeMarkets{},
		&fakeHistory{txs: successfulTxs(10)},
		ReportOptions{TxLimit: 10, DefaultPosition: entity.NewLendingPosition(100, 10)},
		logger.NewNopLogger(),
	)
	pub := &recordingPublisher{}
	pool := NewReportWorkerPool(svc, pub, 3, logger.NewNopLogger())

	requests := make(chan *entity.ReportRequest, 5)
	for i := 0; i < 4; i++ {
		requests <- &entity.ReportRequest{Wallet: testWallet}
	}
	requests <- &entity.ReportRequest{Wallet: "bogus"}
	close(requests)

	pool.Run(context.Background(), requests)

	if len(pub.wallets) != 4 {
		t.Errorf("published %d reports, want 4 (invalid wallet skipped)", len(pub.wallets))
	}
}
