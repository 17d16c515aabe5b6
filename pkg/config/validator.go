package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("database.port must be between 1 and 65535"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}

	// Monitor validation
	if c.Monitor.StatusCheckInterval <= 0 {
		errs = append(errs, errors.New("monitor.status_check_interval must be positive"))
	}
	if c.Monitor.StartRetryDelay <= 0 {
		errs = append(errs, errors.New("monitor.start_retry_delay must be positive"))
	}
	if c.Monitor.SampleRetention < c.Monitor.LoadTimeWindow {
		errs = append(errs, errors.New("monitor.sample_retention must be at least monitor.load_time_window"))
	}

	// Ingestion validation
	if c.Ingestion.StatusLimit <= 0 || c.Ingestion.BatchLimit <= 0 || c.Ingestion.PageLoadLimit <= 0 {
		errs = append(errs, errors.New("ingestion rate limits must be positive"))
	}
	if c.Ingestion.MaxBatchEntries <= 0 {
		errs = append(errs, errors.New("ingestion.max_batch_entries must be positive"))
	}
	if c.Ingestion.SamplingRate < 1 {
		errs = append(errs, errors.New("ingestion.sampling_rate must be at least 1"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
