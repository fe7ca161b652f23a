package entity

import (
	"github.com/shopspring/decimal"
)

// MarketReserve represents one lending-market reserve of the Aave pool
type MarketReserve struct {
	Symbol        string          `json:"token"`
	Name          string          `json:"name"`
	MarketSizeUSD decimal.Decimal `json:"market_size_usd"`
	SupplyAPYPct  decimal.Decimal `json:"supply_apy_pct"`
	BorrowAPYPct  decimal.Decimal `json:"borrow_apy_pct"`
	Borrowable    bool            `json:"borrowable"`
}
