package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"saldo/internal/cli"
	applog "saldo/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)

	app, err := cli.NewApp(cfg, store)
	if err != nil {
		logger.Error("Failed to build services", applog.FieldError, err)
		os.Exit(1)
	}

	srv, err := app.HTTPServer()
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		app.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		app.Close()
	})

	logger.Info("Starting saldo server",
		applog.FieldComponent, applog.ComponentApp,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", app.Broker() != nil,
		"payments", app.Payments != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
