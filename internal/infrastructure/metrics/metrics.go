package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsGenerated tracks finished reports by outcome (complete, partial, failed)
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_reports_total",
			Help: "Total number of risk reports generated",
		},
		[]string{"outcome"},
	)

	// ProviderRequests tracks upstream data calls per provider
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_provider_requests_total",
			Help: "Total number of upstream provider requests",
		},
		[]string{"provider"},
	)

	// ProviderErrors tracks failed upstream data calls per provider
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_provider_errors_total",
			Help: "Total number of failed upstream provider requests",
		},
		[]string{"provider"},
	)

	// ProviderLatency tracks upstream call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskengine_provider_latency_seconds",
			Help:    "Upstream provider latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// HealthScores tracks the distribution of wallet health scores
	HealthScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskengine_wallet_health_score",
			Help:    "Distribution of computed wallet health scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// RiskLevels counts liquidation simulations per risk level
	RiskLevels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_liquidation_risk_level_total",
			Help: "Liquidation simulations by resulting risk level",
		},
		[]string{"level"},
	)
)
