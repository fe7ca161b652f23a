package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	app_service "defi-risk-engine/internal/application/service"
	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	domain_service "defi-risk-engine/internal/domain/service"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/export"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	collateralUSD        float64
	debtUSD              float64
	liquidationThreshold float64
	exportDir            string
	skipExport           bool
	asJSON               bool
)

var reportCmd = &cobra.Command{
	Use:   "report <wallet>",
	Short: "Generate a risk report for a wallet",
	Long: `Fetches Aave V3 market data and the wallet's recent transactions, computes the
wallet health score and simulates liquidation risk for a lending position.
Without position flags the configured sample position is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Float64Var(&collateralUSD, "collateral", 0, "collateral value in USD")
	reportCmd.Flags().Float64Var(&debtUSD, "debt", 0, "debt value in USD")
	reportCmd.Flags().Float64Var(&liquidationThreshold, "threshold", entity.DefaultLiquidationThreshold, "liquidation threshold")
	reportCmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for CSV exports (defaults to app.export_dir)")
	reportCmd.Flags().BoolVar(&skipExport, "no-export", false, "skip writing CSV files")
	reportCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reports domain_service.ReportService
	app := fx.New(
		coreModule(cfg, log),
		fx.Populate(&reports),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Error("Failed to stop application gracefully", zap.Error(err))
		}
	}()

	req := entity.ReportRequest{
		Wallet:   args[0],
		Position: positionFromFlags(cmd, cfg),
	}

	report, err := reports.GenerateReport(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else if err := app_service.NewReportRenderer(cfg.App.TopMarkets).Render(out, report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if skipExport {
		return nil
	}

	dir := cfg.App.ExportDir
	if exportDir != "" {
		dir = exportDir
	}
	return exportReport(export.NewCSVExporter(dir, log), report, cmd.ErrOrStderr())
}

// exportReport writes the report tables and lists the saved files on w
func exportReport(exporter repository.ReportExporter, report *entity.RiskReport, w io.Writer) error {
	files, err := exporter.Export(report)
	for _, f := range files {
		fmt.Fprintf(w, "Saved %s\n", f)
	}
	if err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	return nil
}

// positionFromFlags overlays explicitly set flags on the configured position.
// nil is returned when no flag is set so the service applies its default.
func positionFromFlags(cmd *cobra.Command, cfg *config.Config) *entity.LendingPosition {
	flags := cmd.Flags()
	if !flags.Changed("collateral") && !flags.Changed("debt") && !flags.Changed("threshold") {
		return nil
	}

	pos := &entity.LendingPosition{
		CollateralValue:      cfg.Position.CollateralUSD,
		DebtValue:            cfg.Position.DebtUSD,
		LiquidationThreshold: cfg.Position.LiquidationThreshold,
	}
	if flags.Changed("collateral") {
		pos.CollateralValue = collateralUSD
	}
	if flags.Changed("debt") {
		pos.DebtValue = debtUSD
	}
	if flags.Changed("threshold") {
		pos.LiquidationThreshold = liquidationThreshold
	}
	return pos
}
