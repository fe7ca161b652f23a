package cli

import (
	"fmt"
	"os"

	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "riskengine",
	Short: "DeFi wallet risk engine",
	Long: `riskengine scores an Ethereum wallet's transaction health, simulates the
liquidation risk of a lending position and lists the current Aave V3 markets.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (searches ./config.yaml and ./config/config.yaml when empty)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

// bootstrap loads configuration and builds the process logger
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.App.LogLevel
	if isDebug {
		level = "debug"
	}

	log, err := logger.NewLogger(level, cfg.App.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, log, nil
}
