package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-des/internal/api/http"
	"github.com/i474232898/weather-des/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Publish the New Zealand dataset and build the merged table",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.close()

		// Refresh is the same job the scheduler runs.
		return scheduler.New(0, svc.historical, logger).Refresh(cmd.Context())
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast <city>",
	Short: "Fetch and store the 24-hour forecast for a New Zealand city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.close()

		if !svc.catalog.IsNZCity(args[0]) {
			return fmt.Errorf("%q is not a New Zealand city in the catalogue", args[0])
		}

		series, err := svc.current.FetchForecast(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	// Scheduler that periodically republishes the datasets.
	sched := scheduler.New(cfg.RefreshInterval, svc.historical, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(appName, true)
	err = httpapi.RegisterRoutes(app, httpapi.Deps{
		Catalog:     svc.catalog,
		Users:       svc.users,
		Chat:        svc.chat,
		Current:     svc.current,
		Historical:  svc.historical,
		Dataset:     svc.dataset,
		Logger:      logger,
		ChartWidth:  cfg.ChartWidth,
		ChartHeight: cfg.ChartHeight,
	})
	if err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("http server listening", zap.String("port", cfg.Port), zap.String("store", cfg.RecordStore))
	return serveUntil(ctx, app, ":"+cfg.Port, logger)
}

// serveUntil runs the app until ctx is done or the listener fails.
func serveUntil(ctx context.Context, app *fiber.App, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fiber server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("error during shutdown", zap.Error(err))
	}
	select {
	case <-errCh:
	case <-shutdownCtx.Done():
	}
	return nil
}
