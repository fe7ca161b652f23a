package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	app_service "defi-risk-engine/internal/application/service"
	domain_service "defi-risk-engine/internal/domain/service"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"
	"defi-risk-engine/internal/infrastructure/messaging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Generate reports for wallet requests received over NATS",
	Long: `Consumes report requests from <subject_prefix>.requests, generates reports with
a worker pool and publishes them on <subject_prefix>.reports.<wallet>.
Health and Prometheus metrics are served on app.http_port.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	app := fx.New(
		coreModule(cfg, log),

		// Messaging providers
		fx.Provide(
			messaging.NewNATSConsumer,
			messaging.NewNATSPublisher,
			newReportWorkerPool,
		),

		// Lifecycle hooks
		fx.Invoke(startWorkers),
		fx.Invoke(startHealthServer),
	)

	// Start the application
	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop application gracefully: %w", err)
	}

	log.Info("Application stopped successfully")
	return nil
}

func newReportWorkerPool(
	reports domain_service.ReportService,
	publisher *messaging.NATSPublisher,
	cfg *config.Config,
	log *logger.Logger,
) *app_service.ReportWorkerPool {
	return app_service.NewReportWorkerPool(reports, publisher, cfg.App.WorkerPoolSize, log)
}

// startWorkers connects messaging and runs the worker pool until stop
func startWorkers(
	lifecycle fx.Lifecycle,
	consumer *messaging.NATSConsumer,
	publisher *messaging.NATSPublisher,
	pool *app_service.ReportWorkerPool,
	log *zap.Logger,
	cfg *config.Config,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting report workers...",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("request_subject", messaging.RequestSubject(&cfg.NATS)),
				zap.Bool("enabled", cfg.NATS.Enabled),
				zap.Int("workers", cfg.App.WorkerPoolSize),
			)

			if err := publisher.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect NATS publisher: %w", err)
			}
			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			go func() {
				defer close(done)
				pool.Run(runCtx, consumer.Requests())
			}()

			log.Info("Report workers started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping report workers...")

			// Closing the request channel lets workers drain what is queued
			err := consumer.Disconnect()
			select {
			case <-done:
			case <-ctx.Done():
				cancel()
				<-done
			}
			cancel()

			if cerr := publisher.Close(); cerr != nil && err == nil {
				err = cerr
			}
			return err
		},
	})
}

// startHealthServer serves /health and, when enabled, /metrics
func startHealthServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	consumer *messaging.NATSConsumer,
	logger *logger.Logger,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cfg.NATS.Enabled && !consumer.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","nats":"disconnected"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting health server...", zap.Int("port", cfg.App.HTTPPort))

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Health server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping health server...")
			return server.Shutdown(ctx)
		},
	})
}
