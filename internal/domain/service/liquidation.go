package service

import (
	"defi-risk-engine/internal/domain/entity"
)

// Health factor floors per risk level, checked high to low
const (
	lowRiskFloor    = 2.0
	mediumRiskFloor = 1.5
	highRiskFloor   = 1.1
)

// SimulateLiquidationRisk computes the health factor of a position and how far
// collateral value can fall, with debt held fixed, before it becomes liquidatable.
// Inputs are taken as given; callers wanting validation use LendingPosition.Validate.
func SimulateLiquidationRisk(pos entity.LendingPosition) entity.LiquidationRiskAssessment {
	if pos.DebtValue == 0 {
		return entity.LiquidationRiskAssessment{
			HealthFactor:            entity.InfiniteHealthFactor(),
			RiskLevel:               entity.RiskLevelNoDebt,
			LiquidationPriceDropPct: 100,
		}
	}

	hf := pos.CollateralValue * pos.LiquidationThreshold / pos.DebtValue

	// stays within (0, 100] even when a dust debt overflows hf to +Inf
	var drop float64
	if hf > 1 {
		drop = (1 - 1/hf) * 100
	}

	return entity.LiquidationRiskAssessment{
		HealthFactor:            entity.FiniteHealthFactor(hf),
		RiskLevel:               ClassifyHealthFactor(hf),
		LiquidationPriceDropPct: drop,
	}
}

// ClassifyHealthFactor maps a finite health factor onto a risk level
func ClassifyHealthFactor(hf float64) entity.RiskLevel {
	switch {
	case hf >= lowRiskFloor:
		return entity.RiskLevelLow
	case hf >= mediumRiskFloor:
		return entity.RiskLevelMedium
	case hf >= highRiskFloor:
		return entity.RiskLevelHigh
	default:
		return entity.RiskLevelCritical
	}
}
