package messaging

import (
	"context"
	"testing"

	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"
)

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"wallet":"0xabc","position":{"collateral_value":100,"debt_value":40,"liquidation_threshold":0.8}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Wallet != "0xabc" {
		t.Errorf("wallet = %q", req.Wallet)
	}
	if req.Position == nil {
		t.Fatal("expected a position")
	}
	if req.Position.CollateralValue != 100 || req.Position.DebtValue != 40 || req.Position.LiquidationThreshold != 0.8 {
		t.Errorf("position = %+v", req.Position)
	}

	bare, err := DecodeRequest([]byte(`{"wallet":"0xabc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bare.Position != nil {
		t.Errorf("absent position decoded as %+v", bare.Position)
	}

	for _, bad := range []string{`not json`, `{"position":{}}`} {
		if _, err := DecodeRequest([]byte(bad)); err == nil {
			t.Errorf("DecodeRequest(%s): expected error", bad)
		}
	}
}

func TestSubjects(t *testing.T) {
	cfg := &config.NATSConfig{SubjectPrefix: "risk"}
	if got := RequestSubject(cfg); got != "risk.requests" {
		t.Errorf("RequestSubject = %q", got)
	}
	if got := ReportSubject(cfg, "0xABC"); got != "risk.reports.0xabc" {
		t.Errorf("ReportSubject = %q", got)
	}
}

func TestConsumerDisabled(t *testing.T) {
	cfg := &config.NATSConfig{Enabled: false, MaxPendingMessages: 1}
	consumer := NewNATSConsumer(cfg, logger.NewNopLogger())

	if err := consumer.Connect(context.Background()); err != nil {
		t.Fatalf("disabled consumer should not fail: %v", err)
	}
	if consumer.IsConnected() {
		t.Error("disabled consumer reports connected")
	}
	if err := consumer.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, ok := <-consumer.Requests(); ok {
		t.Error("request channel should be closed after disconnect")
	}
	// second disconnect is a no-op
	if err := consumer.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
}

func TestPublisherDisabled(t *testing.T) {
	pub := NewNATSPublisher(&config.NATSConfig{Enabled: false}, logger.NewNopLogger())
	if err := pub.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pub.Publish(context.Background(), nil); err != nil {
		t.Fatalf("publish without connection should be a no-op: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
