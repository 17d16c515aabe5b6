package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sitehealth", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, time.Minute, cfg.Monitor.StatusCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.Monitor.StartRetryDelay)
	assert.Equal(t, 3, cfg.Ingestion.StatusLimit)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.StatusWindow)
	assert.Equal(t, 1, cfg.Ingestion.BatchLimit)
	assert.Equal(t, 20, cfg.Ingestion.MaxBatchEntries)
	assert.Equal(t, 8080, cfg.API.Port)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.App.Mode = "staging"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.App.Mode = "production"
	assert.Error(t, cfg.Validate())

	cfg.API.JWTSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRetentionCoversLoadTimeWindow(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Monitor.SampleRetention = time.Minute
	cfg.Monitor.LoadTimeWindow = 10 * time.Minute
	assert.Error(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		Name:     "sitehealth",
		User:     "monitor",
		Password: "secret",
	}

	assert.Equal(t,
		"host=db.internal port=5432 user=monitor password=secret dbname=sitehealth sslmode=disable",
		d.DSN(),
	)
}
