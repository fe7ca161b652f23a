package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/infrastructure/blockchain"
	"defi-risk-engine/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// walletHistoryQuery reads outgoing transfers recorded by the bubble-map indexer.
// Amounts are stored in base units; a missing status means the receipt succeeded.
const walletHistoryQuery = `
	MATCH (w:Wallet {address: $address})-[r:SENT_TO]->(to:Wallet)
	MATCH (tx:Transaction {hash: r.tx_hash})
	RETURN tx.hash AS hash,
		tx.timestamp AS timestamp,
		w.address AS from,
		to.address AS to,
		tx.value AS value,
		tx.gas_used AS gas_used,
		tx.gas_price AS gas_price,
		coalesce(tx.status, '1') AS status
	ORDER BY tx.timestamp DESC
	LIMIT $limit
`

// Neo4JTransactionHistory implements TransactionHistoryProvider over the wallet graph
type Neo4JTransactionHistory struct {
	client *Neo4JClient
	limit  int
	logger *logger.Logger
}

// NewNeo4JTransactionHistory creates a new graph-backed history provider
func NewNeo4JTransactionHistory(client *Neo4JClient, defaultLimit int, logger *logger.Logger) *Neo4JTransactionHistory {
	return &Neo4JTransactionHistory{
		client: client,
		limit:  defaultLimit,
		logger: logger.WithComponent("neo4j-tx-history"),
	}
}

var _ repository.TransactionHistoryProvider = (*Neo4JTransactionHistory)(nil)

// Name identifies the provider
func (r *Neo4JTransactionHistory) Name() string {
	return "neo4j"
}

// GetTransactions retrieves the wallet's most recent outgoing transactions
func (r *Neo4JTransactionHistory) GetTransactions(ctx context.Context, address string, limit int) ([]entity.TransactionRecord, error) {
	if limit <= 0 {
		limit = r.limit
	}

	session, err := r.client.ReadSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, walletHistoryQuery, map[string]any{
			"address": strings.ToLower(address),
			"limit":   limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by wallet: %w", err)
	}

	records := result.([]*neo4j.Record)
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.AsMap())
	}
	txs := r.normalizeRows(rows)

	r.logger.Debug("Read wallet history from graph", zap.String("address", address), zap.Int("count", len(txs)))
	return txs, nil
}

// normalizeRows converts result rows, skipping rows the indexer stored incompletely
func (r *Neo4JTransactionHistory) normalizeRows(rows []map[string]any) []entity.TransactionRecord {
	txs := make([]entity.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		tx, err := rowToRaw(row).Normalize()
		if err != nil {
			r.logger.Warn("Skipping malformed graph transaction", zap.Error(err))
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

// rowToRaw maps a result row onto the ledger wire format
func rowToRaw(row map[string]any) blockchain.RawTransaction {
	return blockchain.RawTransaction{
		Hash:            asString(row["hash"]),
		TimeStamp:       asEpoch(row["timestamp"]),
		From:            asString(row["from"]),
		To:              asString(row["to"]),
		Value:           asString(row["value"]),
		GasUsed:         asString(row["gas_used"]),
		GasPrice:        asString(row["gas_price"]),
		TxReceiptStatus: asString(row["status"]),
	}
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func asEpoch(v any) string {
	switch val := v.(type) {
	case time.Time:
		return strconv.FormatInt(val.Unix(), 10)
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return strconv.FormatInt(t.Unix(), 10)
		}
		return val
	default:
		return asString(v)
	}
}
