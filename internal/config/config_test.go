package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.2, cfg.Monitor.LeakFlowThreshold)
	assert.Equal(t, 30*time.Second, *cfg.Monitor.LeakTimeThreshold)
	assert.Equal(t, "0.35", cfg.UnitPriceDecimal().String())
	assert.Equal(t, "synthetic", cfg.Source.Kind)
	assert.Equal(t, 9600, cfg.Source.BaudRate)
	assert.True(t, *cfg.Source.FallbackToSynthetic)
	assert.Equal(t, time.Second, cfg.Source.Tick)
	assert.Equal(t, 15*time.Second, cfg.Source.ProfileSwitch)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Listen)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
monitor:
  leak_flow_threshold: 0.15
  leak_time_threshold: 45s
  unit_price: 1.20
source:
  kind: serial
  serial_port: /dev/ttyUSB1
  baud_rate: 115200
  fallback_to_synthetic: false
http:
  listen: 127.0.0.1:8080
log:
  development: true
`)
	t.Setenv("UNIT_PRICE", "0.50")
	t.Setenv("TELEGRAM_BOT_TOKEN", "t0ken")
	t.Setenv("TELEGRAM_CHAT_ID", "123")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.15, cfg.Monitor.LeakFlowThreshold)
	assert.Equal(t, 45*time.Second, *cfg.Monitor.LeakTimeThreshold)
	assert.Equal(t, "0.5", cfg.UnitPriceDecimal().String())
	assert.Equal(t, "serial", cfg.Source.Kind)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Source.SerialPort)
	assert.Equal(t, 115200, cfg.Source.BaudRate)
	assert.False(t, *cfg.Source.FallbackToSynthetic)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Listen)
	assert.True(t, cfg.Log.Development)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_ExplicitZeroDurationsKept(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
monitor:
  leak_time_threshold: 0s
source:
  error_backoff: 0s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), *cfg.Monitor.LeakTimeThreshold)
	assert.Equal(t, time.Duration(0), *cfg.Source.ErrorBackoff)

	t.Setenv("LEAK_TIME_THRESHOLD", "0s")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), *cfg.Monitor.LeakTimeThreshold)
	assert.Equal(t, time.Second, *cfg.Source.ErrorBackoff)
}

func TestLoad_SimulateShorthand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "source:\n  kind: serial\n")
	t.Setenv("SIMULATE", "true")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", cfg.Source.Kind)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "LEAK_TIME_THRESHOLD=10s\nSQLITE_PATH=/tmp/x.db\n")
	t.Chdir(dir)
	// godotenv does not override variables that are already set, so make
	// sure these are unset for the test and restored afterwards.
	for _, k := range []string{"LEAK_TIME_THRESHOLD", "SQLITE_PATH"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, *cfg.Monitor.LeakTimeThreshold)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("LEAK_FLOW_THRESHOLD", "lots")
	t.Setenv("BAUD_RATE", "fast")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "monitor: [unclosed")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Monitor.LeakFlowThreshold = -1
	cfg.Monitor.UnitPrice = "cheap"
	cfg.Source.Kind = "bluetooth"
	cfg.Schedule.StatusCron = "whenever"
	cfg.Telegram.BotToken = "only-token"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 5)
	assert.ErrorContains(t, err, "leak_flow_threshold")
	assert.ErrorContains(t, err, "unit_price")
	assert.ErrorContains(t, err, "bluetooth")
	assert.ErrorContains(t, err, "status_cron")
	assert.ErrorContains(t, err, "set together")
}

func TestValidate_NegativePrice(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Monitor.UnitPrice = "-0.10"
	assert.ErrorContains(t, cfg.Validate(), "must not be negative")
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.2, cfg.Monitor.LeakFlowThreshold)
	assert.Equal(t, 30*time.Second, *cfg.Monitor.LeakTimeThreshold)
	assert.Equal(t, "0.35", cfg.UnitPriceDecimal().String())
}
