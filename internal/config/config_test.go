package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.daraz.pk/catalog/?q=mobile", cfg.Run.URL)
	assert.Equal(t, "daraz_products.csv", cfg.Run.OutputPath)
	assert.Equal(t, 5, cfg.Run.PageCount)
	assert.Equal(t, 10*time.Second, cfg.Timing.WaitTimeout)
	assert.Equal(t, 2*time.Second, cfg.Timing.NavigationSettle)
	assert.Equal(t, 3*time.Second, cfg.Timing.PageSettle)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "", cfg.Logging.File)
	assert.Equal(t, 1, cfg.Logging.MaxSizeMB)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  url: https://www.daraz.pk/catalog/?q=laptop
  page_count: 2
  csv_header: true
timing:
  wait_timeout: 4s
redis:
  enabled: true
  stream: stream:test
`), 0o644))

	t.Setenv("SCRAPER_PAGES", "7")
	t.Setenv("SCRAPER_PAGE_SETTLE", "500ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://www.daraz.pk/catalog/?q=laptop", cfg.Run.URL)
	assert.Equal(t, 7, cfg.Run.PageCount)
	assert.True(t, cfg.Run.CSVHeader)
	assert.Equal(t, 4*time.Second, cfg.Timing.WaitTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.PageSettle)
	assert.Equal(t, 2*time.Second, cfg.Timing.NavigationSettle)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "stream:test", cfg.Redis.Stream)
	assert.Equal(t, "daraz_products.csv", cfg.Run.OutputPath)
}

func TestLoad_PoolAndRotationEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  max_conns: 8
  min_conns: 1
  max_conn_lifetime: 2h
logging:
  file: logs/scraper.log
`), 0o644))

	t.Setenv("DB_MIN_CONNS", "2")
	t.Setenv("DB_MAX_CONN_IDLE", "90s")
	t.Setenv("LOG_MAX_SIZE_MB", "5")
	t.Setenv("LOG_MAX_BACKUPS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Database.MaxConns)
	assert.Equal(t, 2, cfg.Database.MinConns)
	assert.Equal(t, 2*time.Hour, cfg.Database.MaxConnLifetime)
	assert.Equal(t, 90*time.Second, cfg.Database.MaxConnIdleTime)
	assert.Equal(t, "logs/scraper.log", cfg.Logging.File)
	assert.Equal(t, 5, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 7, cfg.Logging.MaxBackups)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidEnvKeepsPreviousValue(t *testing.T) {
	t.Setenv("SCRAPER_PAGES", "many")
	t.Setenv("BROWSER_HEADLESS", "maybe")
	t.Setenv("SCRAPER_WAIT_TIMEOUT", "ten")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Run.PageCount)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Timing.WaitTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run: [unclosed"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "relative url",
			mutate:  func(c *Config) { c.Run.URL = "catalog/?q=mobile" },
			wantErr: "SCRAPER_URL",
		},
		{
			name:    "zero pages",
			mutate:  func(c *Config) { c.Run.PageCount = 0 },
			wantErr: "SCRAPER_PAGES must be at least 1",
		},
		{
			name:    "empty output",
			mutate:  func(c *Config) { c.Run.OutputPath = " " },
			wantErr: "SCRAPER_OUTPUT",
		},
		{
			name:    "zero wait timeout",
			mutate:  func(c *Config) { c.Timing.WaitTimeout = 0 },
			wantErr: "SCRAPER_WAIT_TIMEOUT",
		},
		{
			name:    "negative settle",
			mutate:  func(c *Config) { c.Timing.PageSettle = -time.Second },
			wantErr: "settle delays",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
		{
			name:    "database without connections",
			mutate:  func(c *Config) { c.Database.Enabled = true; c.Database.MaxConns = 0 },
			wantErr: "DB_MAX_CONNS",
		},
		{
			name:    "more idle than max connections",
			mutate:  func(c *Config) { c.Database.Enabled = true; c.Database.MinConns = 6 },
			wantErr: "DB_MIN_CONNS",
		},
		{
			name:    "negative connection lifetime",
			mutate:  func(c *Config) { c.Database.MaxConnLifetime = -time.Minute },
			wantErr: "DB_MAX_CONN_LIFETIME",
		},
		{
			name:    "log file without rotation size",
			mutate:  func(c *Config) { c.Logging.File = "scraper.log"; c.Logging.MaxSizeMB = 0 },
			wantErr: "LOG_MAX_SIZE_MB",
		},
		{
			name:    "redis without stream",
			mutate:  func(c *Config) { c.Redis.Enabled = true; c.Redis.Stream = "" },
			wantErr: "REDIS_STREAM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.PageCount = -1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCRAPER_PAGES")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}
