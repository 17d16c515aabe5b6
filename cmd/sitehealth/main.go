package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartsite/sitehealth/api"
	"github.com/smartsite/sitehealth/internal/events"
	"github.com/smartsite/sitehealth/internal/logger"
	"github.com/smartsite/sitehealth/internal/monitor"
	"github.com/smartsite/sitehealth/pkg/config"
	"github.com/smartsite/sitehealth/pkg/database"
	"github.com/smartsite/sitehealth/pkg/database/queries"
)

// @title Smart Site Health Monitoring API
// @version 1.0
// @description Self-monitoring service: client telemetry ingestion, threshold evaluation, incident and notification management.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	if *migrate {
		migrationTimeout := cfg.Database.MigrationTimeout
		if migrationTimeout <= 0 {
			migrationTimeout = 60 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()

	eventLogger := events.NewEventLogger(bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	mon := monitor.NewService(
		monitor.Config{
			StatusCheckInterval: cfg.Monitor.StatusCheckInterval,
			StartRetryDelay:     cfg.Monitor.StartRetryDelay,
			SampleRetention:     cfg.Monitor.SampleRetention,
			LoadTimeWindow:      cfg.Monitor.LoadTimeWindow,
		},
		monitor.Deps{
			Metrics:       queries.NewHealthMetricRepository(db.DB),
			Logs:          queries.NewMetricLogRepository(db.DB),
			Incidents:     queries.NewIncidentRepository(db.DB),
			Notifications: queries.NewNotificationRepository(db.DB),
			Prober:        db,
			Publisher:     events.NewPublisher(bus),
		},
	)

	mon.Start(context.Background())
	defer mon.Stop()

	server := api.NewServer(cfg, db, mon, bus)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	mon.Stop()

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
