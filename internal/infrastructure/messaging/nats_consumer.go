package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// RequestSubject is the subject report requests arrive on
func RequestSubject(cfg *config.NATSConfig) string {
	return fmt.Sprintf("%s.requests", cfg.SubjectPrefix)
}

// Connect dials NATS with the shared reconnect policy
func Connect(cfg *config.NATSConfig, log *logger.Logger, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectDelay),
		nats.MaxReconnects(cfg.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NATSConsumer receives report requests from NATS
type NATSConsumer struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	config  *config.NATSConfig
	logger  *logger.Logger
	msgChan chan *entity.ReportRequest
	running atomic.Bool
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewNATSConsumer creates a new NATS consumer
func NewNATSConsumer(cfg *config.NATSConfig, logger *logger.Logger) *NATSConsumer {
	return &NATSConsumer{
		config:  cfg,
		logger:  logger.WithComponent("nats-consumer"),
		msgChan: make(chan *entity.ReportRequest, cfg.MaxPendingMessages),
		done:    make(chan struct{}),
	}
}

// Connect connects to NATS server and sets up the subscription
func (n *NATSConsumer) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	conn, err := Connect(n.config, n.logger, "risk-engine-consumer")
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return err
	}
	n.conn = conn

	// Try JetStream first, if not available fall back to core NATS
	js, err := conn.JetStream()
	if err != nil {
		n.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.js = js
	return n.setupJetStreamSubscription()
}

// setupJetStreamSubscription binds a durable pull consumer on the request stream
func (n *NATSConsumer) setupJetStreamSubscription() error {
	subject := RequestSubject(n.config)

	sub, err := n.js.PullSubscribe(subject, n.config.DurableName, nats.BindStream(n.config.StreamName))
	if err != nil {
		n.logger.Warn("Failed to bind JetStream consumer, falling back to core NATS", zap.Error(err))
		n.js = nil
		return n.setupCoreNATSSubscription()
	}

	n.sub = sub
	n.running.Store(true)

	go n.processJetStreamMessages(sub)

	n.logger.Info("Subscribed to JetStream",
		zap.String("subject", subject),
		zap.String("stream", n.config.StreamName),
		zap.String("durable", n.config.DurableName))

	return nil
}

// processJetStreamMessages fetches request batches until Disconnect
func (n *NATSConsumer) processJetStreamMessages(sub *nats.Subscription) {
	defer close(n.done)

	for n.running.Load() {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if !n.running.Load() {
				break
			}
			n.logger.Error("Failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			n.handleMessage(msg)
		}
	}

	n.logger.Info("Stopped JetStream message processing")
}

// setupCoreNATSSubscription sets up a core NATS queue subscription
func (n *NATSConsumer) setupCoreNATSSubscription() error {
	subject := RequestSubject(n.config)
	queueGroup := n.config.ConsumerGroup

	sub, err := n.conn.QueueSubscribe(subject, queueGroup, n.handleMessage)
	if err != nil {
		n.logger.Error("Failed to subscribe to subject", zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.sub = sub
	n.running.Store(true)
	close(n.done)

	n.logger.Info("Subscribed to core NATS",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	return nil
}

// handleMessage decodes a request and hands it to the worker channel
func (n *NATSConsumer) handleMessage(msg *nats.Msg) {
	req, err := DecodeRequest(msg.Data)
	if err != nil {
		n.logger.Error("Failed to decode report request", zap.Error(err))
		// Malformed requests are never redelivered
		if n.js != nil {
			_ = msg.Term()
		}
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		if n.js != nil {
			_ = msg.Nak()
		}
		return
	}

	select {
	case n.msgChan <- req:
		if n.js != nil {
			_ = msg.Ack()
		}
	default:
		n.logger.Warn("Request channel is full, dropping request", zap.String("wallet", req.Wallet))
		if n.js != nil {
			_ = msg.Nak()
		}
	}
}

// DecodeRequest parses a report request payload
func DecodeRequest(data []byte) (*entity.ReportRequest, error) {
	var req entity.ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if req.Wallet == "" {
		return nil, errors.New("request has no wallet")
	}
	return &req, nil
}

// Disconnect disconnects from NATS server and closes the request channel
func (n *NATSConsumer) Disconnect() error {
	wasRunning := n.running.Swap(false)

	if n.sub != nil {
		_ = n.sub.Unsubscribe()
		n.sub = nil
	}
	if wasRunning {
		<-n.done
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.msgChan)
	}
	n.mu.Unlock()

	n.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (n *NATSConsumer) IsConnected() bool {
	return n.running.Load() && n.conn != nil && n.conn.IsConnected()
}

// Requests returns the channel of decoded report requests
func (n *NATSConsumer) Requests() <-chan *entity.ReportRequest {
	return n.msgChan
}
