package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/infrastructure/blockchain"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/database"
	"defi-risk-engine/internal/infrastructure/logger"

	"go.uber.org/fx/fxtest"
)

func testConfig() *config.Config {
	return &config.Config{
		Etherscan: config.EtherscanConfig{TxLimit: 25},
		Position: config.PositionConfig{
			CollateralUSD:        10000,
			DebtUSD:              5000,
			LiquidationThreshold: 0.825,
		},
	}
}

func TestPositionFromFlags(t *testing.T) {
	cfg := testConfig()

	if got := positionFromFlags(reportCmd, cfg); got != nil {
		t.Fatalf("expected no position without flags, got %+v", got)
	}

	if err := reportCmd.Flags().Set("debt", "0"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	got := positionFromFlags(reportCmd, cfg)
	want := entity.LendingPosition{CollateralValue: 10000, DebtValue: 0, LiquidationThreshold: 0.825}
	if got == nil || *got != want {
		t.Errorf("position = %+v, want %+v", got, want)
	}
}

func TestNewReportOptions(t *testing.T) {
	opts := newReportOptions(testConfig())
	if opts.TxLimit != 25 {
		t.Errorf("tx limit = %d, want 25", opts.TxLimit)
	}
	if opts.DefaultPosition != entity.NewLendingPosition(10000, 5000) {
		t.Errorf("default position = %+v", opts.DefaultPosition)
	}
}

func TestNewHistoryProvider(t *testing.T) {
	log := logger.NewNopLogger()

	tests := []struct {
		source  string
		want    string
		wantErr bool
	}{
		{"", "etherscan", false},
		{config.HistorySourceEtherscan, "etherscan", false},
		{config.HistorySourceNeo4J, "neo4j", false},
		{"postgres", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			cfg := testConfig()
			cfg.History.Source = tt.source

			provider, err := newHistoryProvider(fxtest.NewLifecycle(t), cfg, log)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for source %q", tt.source)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.Name() != tt.want {
				t.Errorf("provider = %s, want %s", provider.Name(), tt.want)
			}

			switch provider.(type) {
			case *blockchain.EtherscanClient, *database.Neo4JTransactionHistory:
			default:
				t.Errorf("unexpected provider type %T", provider)
			}
		})
	}
}

type stubExporter struct {
	files []string
	err   error
	got   *entity.RiskReport
}

func (e *stubExporter) Export(report *entity.RiskReport) ([]string, error) {
	e.got = report
	return e.files, e.err
}

func TestExportReport(t *testing.T) {
	report := &entity.RiskReport{Wallet: "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"}

	exporter := &stubExporter{files: []string{"out/aave_markets.csv", "out/wallet_transactions.csv"}}
	var buf bytes.Buffer
	if err := exportReport(exporter, report, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exporter.got != report {
		t.Errorf("exporter received %+v", exporter.got)
	}
	if got := buf.String(); got != "Saved out/aave_markets.csv\nSaved out/wallet_transactions.csv\n" {
		t.Errorf("output = %q", got)
	}

	failing := &stubExporter{files: []string{"out/aave_markets.csv"}, err: errors.New("disk full")}
	buf.Reset()
	err := exportReport(failing, report, &buf)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected export error, got %v", err)
	}
	if !strings.Contains(buf.String(), "aave_markets.csv") {
		t.Errorf("files written before the failure should be listed: %q", buf.String())
	}
}
