package service

import (
	"context"
	"sync"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/domain/service"
	"defi-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// ReportWorkerPool generates reports for queued requests in parallel.
// Reports share no state, so workers need no coordination beyond the channel.
type ReportWorkerPool struct {
	reports   service.ReportService
	publisher repository.ReportPublisher
	size      int
	logger    *logger.Logger
}

// NewReportWorkerPool creates a pool of size workers
func NewReportWorkerPool(
	reports service.ReportService,
	publisher repository.ReportPublisher,
	size int,
	logger *logger.Logger,
) *ReportWorkerPool {
	if size <= 0 {
		size = 1
	}
	return &ReportWorkerPool{
		reports:   reports,
		publisher: publisher,
		size:      size,
		logger:    logger.WithComponent("report-worker"),
	}
}

// Run processes requests until the channel closes or ctx is done
func (p *ReportWorkerPool) Run(ctx context.Context, requests <-chan *entity.ReportRequest) {
	var wg sync.WaitGroup

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.logger.Info("Starting report worker", zap.Int("worker_id", workerID))

			for {
				select {
				case <-ctx.Done():
					return
				case req, ok := <-requests:
					if !ok {
						return
					}
					p.handle(ctx, workerID, req)
				}
			}
		}(i)
	}

	wg.Wait()
	p.logger.Info("Report workers stopped")
}

func (p *ReportWorkerPool) handle(ctx context.Context, workerID int, req *entity.ReportRequest) {
	report, err := p.reports.GenerateReport(ctx, *req)
	if err != nil {
		p.logger.Error("Failed to generate report",
			zap.Error(err),
			zap.Int("worker_id", workerID),
			zap.String("wallet", req.Wallet))
		return
	}

	if err := p.publisher.Publish(ctx, report); err != nil {
		p.logger.Error("Failed to publish report",
			zap.Error(err),
			zap.Int("worker_id", workerID),
			zap.String("wallet", report.Wallet))
		return
	}

	p.logger.Info("Report published",
		zap.Int("worker_id", workerID),
		zap.String("wallet", report.Wallet),
		zap.String("risk_level", string(report.Liquidation.RiskLevel)))
}
