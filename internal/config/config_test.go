package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "tonnes", cfg.Emissions.MethaneUnit)
	assert.Equal(t, 5*time.Minute, cfg.Emissions.CacheTTL)
	require.Len(t, cfg.Snapshots.Jobs, 2)
	assert.Equal(t, "previousWeek", cfg.Snapshots.Jobs[1].Range)
	assert.Equal(t, time.UTC, cfg.Emissions.Location())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090},
		"mongo": {"database": "mine_a", "collections": {"methane": "ch4"}},
		"emissions": {"methane_unit": "kg", "timezone": "Africa/Johannesburg"},
		"snapshots": {"jobs": [{"name": "monthly", "cron_expression": "0 0 1 1 * *", "range": "month"}]}
	}`), 0o600))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("SUMMARY_CACHE_TTL", "90s")
	t.Setenv("ALERT_THRESHOLD_TONNES", "12.5")
	t.Setenv("REPORT_ARCHIVE_BUCKET", "carbon-archive")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "mine_a", cfg.Mongo.Database)
	assert.Equal(t, "ch4", cfg.Mongo.Collections["methane"])
	assert.Equal(t, "kg", cfg.Emissions.MethaneUnit)
	assert.Equal(t, 90*time.Second, cfg.Emissions.CacheTTL)
	assert.Equal(t, 12.5, cfg.Snapshots.AlertThreshold)
	assert.Equal(t, "carbon-archive", cfg.AWS.ArchiveBucket)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Snapshots.Jobs, 1)
	assert.Equal(t, "monthly", cfg.Snapshots.Jobs[0].Name)
	assert.Equal(t, "Africa/Johannesburg", cfg.Emissions.Location().String())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"server":`), 0o600))
	_, err := LoadConfig(broken)
	assert.Error(t, err)

	t.Setenv("EMISSIONS_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "timezone")
}

func TestNewLogger(t *testing.T) {
	cfg := LoggingConfig{Level: "warn"}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	cfg = LoggingConfig{Level: "loud"}
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}

func TestConnectionStrings(t *testing.T) {
	db := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "reports", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/reports?sslmode=disable", db.GetDatabaseURL())

	server := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", server.GetServerAddr())
}
