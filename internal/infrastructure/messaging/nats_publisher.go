package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ReportSubject is the subject a wallet's finished report is published on
func ReportSubject(cfg *config.NATSConfig, wallet string) string {
	return fmt.Sprintf("%s.reports.%s", cfg.SubjectPrefix, strings.ToLower(wallet))
}

// NATSPublisher publishes finished reports to NATS
type NATSPublisher struct {
	conn   *nats.Conn
	config *config.NATSConfig
	logger *logger.Logger
}

// NewNATSPublisher creates a new NATS report publisher
func NewNATSPublisher(cfg *config.NATSConfig, logger *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		config: cfg,
		logger: logger.WithComponent("nats-publisher"),
	}
}

var _ repository.ReportPublisher = (*NATSPublisher)(nil)

// Connect opens the publishing connection
func (p *NATSPublisher) Connect(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("NATS is disabled, reports will not be published")
		return nil
	}
	conn, err := Connect(p.config, p.logger, "risk-engine-publisher")
	if err != nil {
		return err
	}
	p.conn = conn
	return nil
}

// Publish sends the JSON-encoded report on the wallet's report subject
func (p *NATSPublisher) Publish(ctx context.Context, report *entity.RiskReport) error {
	if p.conn == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	subject := ReportSubject(p.config, report.Wallet)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	p.logger.Debug("Published report", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	return err
}
