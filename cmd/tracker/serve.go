package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang-microcap-tracker/internal/tracker/config"
	delivery "golang-microcap-tracker/internal/tracker/delivery/http"
	"golang-microcap-tracker/internal/tracker/service"
	"golang-microcap-tracker/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the daily run scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting tracker service", logger.Field("name", cfg.App.Name), logger.StringField("storage", cfg.Storage.Driver))

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	e := delivery.NewRouter(a.reportService, a.runService, appLogger)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if cfg.Scheduler.Enabled {
		scheduler, err := service.NewSchedulerService(cfg, a.runService, appLogger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return scheduler.Start(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		appLogger.Error("Tracker service stopped with error", logger.ErrorField(err))
		return err
	}
	appLogger.Info("Server exiting")
	return nil
}
