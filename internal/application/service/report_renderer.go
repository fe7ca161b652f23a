package service

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"defi-risk-engine/internal/domain/entity"
)

const (
	ruleWidth          = 60
	recentTransactions = 5
)

// ReportRenderer formats a RiskReport as a human-readable summary
type ReportRenderer struct {
	topMarkets int
}

// NewReportRenderer creates a renderer listing at most topMarkets reserves
func NewReportRenderer(topMarkets int) *ReportRenderer {
	if topMarkets <= 0 {
		topMarkets = 10
	}
	return &ReportRenderer{topMarkets: topMarkets}
}

// Render writes the report; values are rounded here and nowhere else
func (r *ReportRenderer) Render(w io.Writer, report *entity.RiskReport) error {
	rule := strings.Repeat("=", ruleWidth)
	b := &strings.Builder{}

	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, "RISK REPORT")
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "Wallet: %s\n", report.Wallet)
	fmt.Fprintf(b, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	if h := report.Health; h != nil {
		fmt.Fprintf(b, "\nWALLET HEALTH SCORE: %.1f/100\n", h.Score)
		fmt.Fprintf(b, "   - Success Rate: %.1f%%\n", h.SuccessRatePct)
		fmt.Fprintf(b, "   - Avg Gas Price: %.2f Gwei\n", h.AvgGasPriceGwei)
		fmt.Fprintf(b, "   - Total Gas Spent: %.4f ETH\n", h.TotalGasSpent)
		fmt.Fprintf(b, "   - Transactions Analyzed: %d\n", h.TransactionCount)
	} else {
		fmt.Fprintln(b, "\nWALLET HEALTH SCORE: unavailable (insufficient data)")
	}

	liq := report.Liquidation
	fmt.Fprintf(b, "\nLIQUIDATION RISK: %s\n", liq.RiskLevel)
	fmt.Fprintf(b, "   - Position: $%.2f collateral / $%.2f debt (threshold %.3f)\n",
		report.Position.CollateralValue, report.Position.DebtValue, report.Position.LiquidationThreshold)
	fmt.Fprintf(b, "   - Health Factor: %s\n", liq.HealthFactor)
	fmt.Fprintf(b, "   - Price can drop %.1f%% before liquidation\n", liq.LiquidationPriceDropPct)

	if len(report.Markets) > 0 {
		fmt.Fprintln(b, "\nTOP AAVE MARKETS BY SIZE:")
		tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "token\tname\tmarket_size_usd\tsupply_apy_pct\tborrow_apy_pct\t")
		for i, m := range report.Markets {
			if i >= r.topMarkets {
				break
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
				m.Symbol, m.Name,
				m.MarketSizeUSD.StringFixed(2),
				m.SupplyAPYPct.StringFixed(2),
				m.BorrowAPYPct.StringFixed(2))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Transactions) > 0 {
		fmt.Fprintln(b, "\nRECENT TRANSACTIONS:")
		tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "date\tfrom\tto\tvalue_eth\tstatus\t")
		for i, tx := range report.Transactions {
			if i >= recentTransactions {
				break
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
				tx.Timestamp.UTC().Format("2006-01-02 15:04"),
				entity.ShortAddress(tx.From),
				entity.ShortAddress(tx.To),
				tx.Value.StringFixed(4),
				tx.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(b, "\nWARNINGS:")
		for _, warning := range report.Warnings {
			fmt.Fprintf(b, "   - %s\n", warning)
		}
	}

	fmt.Fprintln(b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}
