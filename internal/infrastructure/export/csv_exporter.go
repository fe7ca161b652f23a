package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Export file names
const (
	MarketsFile      = "aave_markets.csv"
	TransactionsFile = "wallet_transactions.csv"
)

var (
	marketHeader      = []string{"token", "name", "market_size_usd", "supply_apy_pct", "borrow_apy_pct"}
	transactionHeader = []string{"date", "from", "to", "value_eth", "gas_used", "gas_price_gwei", "gas_fee_eth", "status", "hash"}
)

// CSVExporter writes report tables as CSV files into a directory
type CSVExporter struct {
	dir    string
	logger *logger.Logger
}

// NewCSVExporter creates an exporter rooted at dir
func NewCSVExporter(dir string, logger *logger.Logger) *CSVExporter {
	if dir == "" {
		dir = "."
	}
	return &CSVExporter{
		dir:    dir,
		logger: logger.WithComponent("csv-exporter"),
	}
}

var _ repository.ReportExporter = (*CSVExporter)(nil)

// Export writes the market table and, when history is present, the transaction table
func (e *CSVExporter) Export(report *entity.RiskReport) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	var written []string

	marketsPath := filepath.Join(e.dir, MarketsFile)
	if err := writeCSV(marketsPath, marketHeader, marketRows(report.Markets)); err != nil {
		return written, fmt.Errorf("failed to export markets: %w", err)
	}
	written = append(written, marketsPath)

	if len(report.Transactions) > 0 {
		txPath := filepath.Join(e.dir, TransactionsFile)
		if err := writeCSV(txPath, transactionHeader, transactionRows(report.Transactions)); err != nil {
			return written, fmt.Errorf("failed to export transactions: %w", err)
		}
		written = append(written, txPath)
	}

	e.logger.Info("Exported report tables", zap.Strings("files", written))
	return written, nil
}

func marketRows(markets []entity.MarketReserve) [][]string {
	rows := make([][]string, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, []string{
			m.Symbol,
			m.Name,
			m.MarketSizeUSD.StringFixed(2),
			m.SupplyAPYPct.StringFixed(2),
			m.BorrowAPYPct.StringFixed(2),
		})
	}
	return rows
}

func transactionRows(txs []entity.TransactionRecord) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		to := tx.To
		if tx.IsContractCreation() {
			to = "Contract"
		}
		rows = append(rows, []string{
			tx.Timestamp.UTC().Format("2006-01-02 15:04"),
			tx.From,
			to,
			tx.Value.StringFixed(4),
			strconv.FormatUint(tx.GasUsed, 10),
			tx.GasPrice.StringFixed(2),
			tx.GasFee().StringFixed(6),
			string(tx.Status),
			tx.Hash,
		})
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
