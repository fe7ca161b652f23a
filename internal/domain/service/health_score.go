package service

import (
	"errors"
	"math"

	"defi-risk-engine/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData is returned when there is no history to score
var ErrInsufficientData = errors.New("insufficient transaction data")

// Health score weights
const (
	baselineScore        = 100.0
	targetSuccessRate    = 0.95
	gasPriceCeilingGwei  = 50.0
	gasPenaltyDivisor    = 5.0
	maxGasPenalty        = 20.0
	minActiveTxCount     = 10
	lowActivityPenalty   = 20.0
	successRatePctFactor = 100.0
)

// ComputeHealthScore scores a wallet from its transaction history.
// The result does not depend on the order of txs.
func ComputeHealthScore(txs []entity.TransactionRecord) (*entity.WalletHealthMetrics, error) {
	if len(txs) == 0 {
		return nil, ErrInsufficientData
	}

	var succeeded int
	gasPriceSum := decimal.Zero
	gasSpent := decimal.Zero
	for _, tx := range txs {
		if tx.Succeeded() {
			succeeded++
		}
		gasPriceSum = gasPriceSum.Add(tx.GasPrice)
		gasSpent = gasSpent.Add(tx.GasFee())
	}

	count := len(txs)
	successRate := float64(succeeded) / float64(count)
	avgGasPrice := gasPriceSum.Div(decimal.NewFromInt(int64(count))).InexactFloat64()

	score := baselineScore
	if successRate < targetSuccessRate {
		score -= (targetSuccessRate - successRate) * 100
	}
	if avgGasPrice > gasPriceCeilingGwei {
		score -= math.Min(maxGasPenalty, (avgGasPrice-gasPriceCeilingGwei)/gasPenaltyDivisor)
	}
	if count < minActiveTxCount {
		score -= lowActivityPenalty
	}

	return &entity.WalletHealthMetrics{
		Score:            math.Max(0, score),
		SuccessRatePct:   successRate * successRatePctFactor,
		AvgGasPriceGwei:  avgGasPrice,
		TotalGasSpent:    gasSpent.InexactFloat64(),
		TransactionCount: count,
	}, nil
}
