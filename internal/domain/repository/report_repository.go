package repository

import (
	"context"

	"defi-risk-engine/internal/domain/entity"
)

// ReportExporter writes the tabular parts of a report to flat files
type ReportExporter interface {
	// Export writes the report tables and returns the paths written
	Export(report *entity.RiskReport) ([]string, error)
}

// ReportPublisher delivers finished reports to downstream consumers
type ReportPublisher interface {
	Publish(ctx context.Context, report *entity.RiskReport) error
}
