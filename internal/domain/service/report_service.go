package service

import (
	"context"

	"defi-risk-engine/internal/domain/entity"
)

// ReportService defines the interface for risk report generation
type ReportService interface {
	// GenerateReport fetches market and wallet data and assembles a risk report
	GenerateReport(ctx context.Context, req entity.ReportRequest) (*entity.RiskReport, error)
}
