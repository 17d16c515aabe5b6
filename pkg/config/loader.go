package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sitehealth")
	}

	// Environment variable settings
	v.SetEnvPrefix("SITEHEALTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "sitehealth")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "sitehealth")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Monitor defaults
	v.SetDefault("monitor.status_check_interval", "60s")
	v.SetDefault("monitor.start_retry_delay", "10s")
	v.SetDefault("monitor.sample_retention", "1h")
	v.SetDefault("monitor.load_time_window", "10m")

	// Ingestion rate limit defaults
	v.SetDefault("ingestion.status_limit", 3)
	v.SetDefault("ingestion.status_window", "30s")
	v.SetDefault("ingestion.batch_limit", 1)
	v.SetDefault("ingestion.batch_window", "10s")
	v.SetDefault("ingestion.page_load_limit", 5)
	v.SetDefault("ingestion.page_load_window", "60s")
	v.SetDefault("ingestion.max_batch_entries", 20)
	v.SetDefault("ingestion.sampling_rate", 1)
	v.SetDefault("ingestion.cleanup_interval", "5m")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "sitehealth")
	v.SetDefault("api.default_limit", 100)
	v.SetDefault("api.max_limit", 1000)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
