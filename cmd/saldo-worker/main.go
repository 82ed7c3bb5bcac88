package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saldo/internal/cli"
	applog "saldo/internal/log"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	logger.Info("Starting saldo-worker", applog.FieldComponent, applog.ComponentWorker)

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)

	app, err := cli.NewApp(cfg, store)
	if err != nil {
		logger.Error("Failed to build services", applog.FieldError, err)
		os.Exit(1)
	}

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", applog.FieldError, err, "port", cfg.MetricsPort)
		}
	}()

	auditor := worker.NewAuditor(app.Store, app.Metrics)
	scheduler := worker.NewScheduler(cfg.Location())
	if _, err := scheduler.Add(cfg.IntegritySchedule, "taxonomy-integrity", 5*time.Minute, func(ctx context.Context) error {
		_, err := auditor.Run(ctx)
		return err
	}); err != nil {
		logger.Error("Invalid integrity schedule", applog.FieldError, err, "schedule", cfg.IntegritySchedule)
		app.Close()
		os.Exit(1)
	}
	scheduler.Start()

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		scheduler.Stop()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown error", applog.FieldError, err)
		}
		app.Close()
	})

	// Startup check so violations show up without waiting for the schedule.
	if _, err := auditor.Run(ctx); err != nil {
		logger.Warn("Startup integrity audit failed", applog.FieldError, err)
	}

	if broker := app.Broker(); broker != nil {
		alerter := worker.NewLimitAlerter(app.Store, app.Metrics)
		go func() {
			if err := broker.Consume(ctx, alerter.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed",
					applog.FieldComponent, applog.ComponentAMQP,
					applog.FieldError, err)
			}
		}()
		logger.Info("Consuming events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, limit alerts are not evaluated")
	}

	logger.Info("Worker running",
		"schedule", cfg.IntegritySchedule,
		"metrics_port", cfg.MetricsPort)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
