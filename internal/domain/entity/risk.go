package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// DefaultLiquidationThreshold is the Aave v3 ETH-collateral threshold
const DefaultLiquidationThreshold = 0.825

// ErrInvalidPosition is returned by LendingPosition.Validate
var ErrInvalidPosition = errors.New("invalid lending position")

// WalletHealthMetrics summarizes a wallet's transaction history
type WalletHealthMetrics struct {
	Score            float64 `json:"score"`
	SuccessRatePct   float64 `json:"success_rate_pct"`
	AvgGasPriceGwei  float64 `json:"avg_gas_price_gwei"`
	TotalGasSpent    float64 `json:"total_gas_spent_eth"`
	TransactionCount int     `json:"transaction_count"`
}

// LendingPosition is a collateral/debt pair valued in a common currency
type LendingPosition struct {
	CollateralValue      float64 `json:"collateral_value"`
	DebtValue            float64 `json:"debt_value"`
	LiquidationThreshold float64 `json:"liquidation_threshold"`
}

// NewLendingPosition builds a position using DefaultLiquidationThreshold
func NewLendingPosition(collateral, debt float64) LendingPosition {
	return LendingPosition{
		CollateralValue:      collateral,
		DebtValue:            debt,
		LiquidationThreshold: DefaultLiquidationThreshold,
	}
}

// Validate rejects negative amounts and thresholds outside (0,1]
func (p LendingPosition) Validate() error {
	switch {
	case p.CollateralValue < 0 || math.IsNaN(p.CollateralValue):
		return fmt.Errorf("%w: collateral %v", ErrInvalidPosition, p.CollateralValue)
	case p.DebtValue < 0 || math.IsNaN(p.DebtValue):
		return fmt.Errorf("%w: debt %v", ErrInvalidPosition, p.DebtValue)
	case !(p.LiquidationThreshold > 0 && p.LiquidationThreshold <= 1):
		return fmt.Errorf("%w: liquidation threshold %v", ErrInvalidPosition, p.LiquidationThreshold)
	}
	return nil
}

// HealthFactor is either a finite ratio or infinite (no debt)
type HealthFactor struct {
	value    float64
	infinite bool
}

// FiniteHealthFactor wraps a computed collateral/debt ratio
func FiniteHealthFactor(v float64) HealthFactor {
	return HealthFactor{value: v}
}

// InfiniteHealthFactor is the health factor of a position without debt
func InfiniteHealthFactor() HealthFactor {
	return HealthFactor{infinite: true}
}

// IsInfinite reports whether the position carries no debt
func (h HealthFactor) IsInfinite() bool {
	return h.infinite
}

// Value returns the finite ratio; ok is false for an infinite health factor
func (h HealthFactor) Value() (v float64, ok bool) {
	if h.infinite {
		return math.Inf(1), false
	}
	return h.value, true
}

func (h HealthFactor) String() string {
	if h.infinite {
		return "∞"
	}
	return strconv.FormatFloat(h.value, 'f', 2, 64)
}

// MarshalJSON encodes a finite factor as a number and an infinite one as "infinity".
// A ratio that overflowed to +Inf encodes as "infinity" too.
func (h HealthFactor) MarshalJSON() ([]byte, error) {
	switch {
	case h.infinite || math.IsInf(h.value, 1):
		return []byte(`"infinity"`), nil
	case math.IsNaN(h.value) || math.IsInf(h.value, -1):
		return nil, fmt.Errorf("health factor %v has no JSON encoding", h.value)
	}
	return json.Marshal(h.value)
}

// UnmarshalJSON accepts the encodings produced by MarshalJSON
func (h *HealthFactor) UnmarshalJSON(data []byte) error {
	if string(data) == `"infinity"` {
		*h = InfiniteHealthFactor()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid health factor %s: %w", data, err)
	}
	*h = FiniteHealthFactor(v)
	return nil
}

// RiskLevel classifies a lending position by its health factor
type RiskLevel string

const (
	RiskLevelNoDebt   RiskLevel = "NO_DEBT"
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// LiquidationRiskAssessment is the simulated outcome for a LendingPosition
type LiquidationRiskAssessment struct {
	HealthFactor            HealthFactor `json:"health_factor"`
	RiskLevel               RiskLevel    `json:"risk_level"`
	LiquidationPriceDropPct float64      `json:"liquidation_price_drop_pct"`
}

// RiskReport is the assembled output for one wallet
type RiskReport struct {
	Wallet       string                    `json:"wallet"`
	GeneratedAt  time.Time                 `json:"generated_at"`
	Position     LendingPosition           `json:"position"`
	Markets      []MarketReserve           `json:"markets"`
	Transactions []TransactionRecord       `json:"transactions,omitempty"`
	Health       *WalletHealthMetrics      `json:"health,omitempty"` // nil when unavailable
	Liquidation  LiquidationRiskAssessment `json:"liquidation"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// HasHealth reports whether a health score could be computed
func (r *RiskReport) HasHealth() bool {
	return r.Health != nil
}

// ReportRequest asks for a risk report on a wallet and a lending position.
// A nil Position selects the configured sample position.
type ReportRequest struct {
	Wallet   string           `json:"wallet"`
	Position *LendingPosition `json:"position,omitempty"`
}
