package repository

import (
	"context"

	"defi-risk-engine/internal/domain/entity"
)

// TransactionHistoryProvider defines the interface for wallet history sources
type TransactionHistoryProvider interface {
	// Name identifies the source in logs and metrics
	Name() string

	// GetTransactions retrieves up to limit of the wallet's most recent transactions
	GetTransactions(ctx context.Context, address string, limit int) ([]entity.TransactionRecord, error)
}
