package repository

import (
	"context"

	"defi-risk-engine/internal/domain/entity"
)

// MarketDataProvider defines the interface for lending-market data sources
type MarketDataProvider interface {
	// Name identifies the source in logs and metrics
	Name() string

	// GetReserves retrieves all reserves of the configured lending market
	GetReserves(ctx context.Context) ([]entity.MarketReserve, error)
}
