package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Run      RunConfig      `yaml:"run"`
	Browser  BrowserConfig  `yaml:"browser"`
	Timing   TimingConfig   `yaml:"timing"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type RunConfig struct {
	URL        string `yaml:"url"`
	OutputPath string `yaml:"output_path"`
	PageCount  int    `yaml:"page_count"`
	CSVHeader  bool   `yaml:"csv_header"`
}

type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	Locale         string        `yaml:"locale"`
	TimezoneID     string        `yaml:"timezone_id"`
}

type TimingConfig struct {
	WaitTimeout      time.Duration `yaml:"wait_timeout"`
	NavigationSettle time.Duration `yaml:"navigation_settle"`
	PageSettle       time.Duration `yaml:"page_settle"`
}

type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// LoggingConfig controls the slog handler. File is optional; when set, log
// lines are also appended to it and it is rotated once it grows past
// MaxSizeMB megabytes.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			URL:        "https://www.daraz.pk/catalog/?q=mobile",
			OutputPath: "daraz_products.csv",
			PageCount:  5,
		},
		Browser: BrowserConfig{
			Headless:       true,
			Timeout:        30 * time.Second,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			Locale:         "en-US",
			TimezoneID:     "Asia/Karachi",
		},
		Timing: TimingConfig{
			WaitTimeout:      10 * time.Second,
			NavigationSettle: 2 * time.Second,
			PageSettle:       3 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Name:            "listing_scraper",
			MaxConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Stream: "stream:listings",
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  1,
			MaxBackups: 3,
		},
	}
}

// Load starts from DefaultConfig, applies the YAML file at path when path is
// not empty, and finally applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Run.URL = getEnvOrDefault("SCRAPER_URL", c.Run.URL)
	c.Run.OutputPath = getEnvOrDefault("SCRAPER_OUTPUT", c.Run.OutputPath)
	c.Run.PageCount = getIntOrDefault("SCRAPER_PAGES", c.Run.PageCount)
	c.Run.CSVHeader = getBoolOrDefault("SCRAPER_CSV_HEADER", c.Run.CSVHeader)

	c.Browser.Headless = getBoolOrDefault("BROWSER_HEADLESS", c.Browser.Headless)
	c.Browser.Timeout = getDurationOrDefault("BROWSER_TIMEOUT", c.Browser.Timeout)
	c.Browser.UserAgent = getEnvOrDefault("BROWSER_USER_AGENT", c.Browser.UserAgent)
	c.Browser.ViewportWidth = getIntOrDefault("BROWSER_VIEWPORT_WIDTH", c.Browser.ViewportWidth)
	c.Browser.ViewportHeight = getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", c.Browser.ViewportHeight)
	c.Browser.Locale = getEnvOrDefault("BROWSER_LOCALE", c.Browser.Locale)
	c.Browser.TimezoneID = getEnvOrDefault("BROWSER_TIMEZONE", c.Browser.TimezoneID)

	c.Timing.WaitTimeout = getDurationOrDefault("SCRAPER_WAIT_TIMEOUT", c.Timing.WaitTimeout)
	c.Timing.NavigationSettle = getDurationOrDefault("SCRAPER_NAVIGATION_SETTLE", c.Timing.NavigationSettle)
	c.Timing.PageSettle = getDurationOrDefault("SCRAPER_PAGE_SETTLE", c.Timing.PageSettle)

	c.Database.Enabled = getBoolOrDefault("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnvOrDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getIntOrDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvOrDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvOrDefault("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnvOrDefault("DB_NAME", c.Database.Name)
	c.Database.MaxConns = getIntOrDefault("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getIntOrDefault("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getDurationOrDefault("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getDurationOrDefault("DB_MAX_CONN_IDLE", c.Database.MaxConnIdleTime)

	c.Redis.Enabled = getBoolOrDefault("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntOrDefault("REDIS_DB", c.Redis.DB)
	c.Redis.Stream = getEnvOrDefault("REDIS_STREAM", c.Redis.Stream)

	c.Server.Port = getEnvOrDefault("SERVER_PORT", c.Server.Port)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnvOrDefault("LOG_FILE", c.Logging.File)
	c.Logging.MaxSizeMB = getIntOrDefault("LOG_MAX_SIZE_MB", c.Logging.MaxSizeMB)
	c.Logging.MaxBackups = getIntOrDefault("LOG_MAX_BACKUPS", c.Logging.MaxBackups)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Run.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SCRAPER_URL must be an absolute URL, got %q", c.Run.URL))
	}
	if strings.TrimSpace(c.Run.OutputPath) == "" {
		errs = append(errs, errors.New("SCRAPER_OUTPUT must not be empty"))
	}
	if c.Run.PageCount < 1 {
		errs = append(errs, fmt.Errorf("SCRAPER_PAGES must be at least 1, got %d", c.Run.PageCount))
	}
	if c.Timing.WaitTimeout <= 0 {
		errs = append(errs, errors.New("SCRAPER_WAIT_TIMEOUT must be positive"))
	}
	if c.Timing.NavigationSettle < 0 || c.Timing.PageSettle < 0 {
		errs = append(errs, errors.New("settle delays cannot be negative"))
	}
	if c.Browser.ViewportWidth < 1 || c.Browser.ViewportHeight < 1 {
		errs = append(errs, errors.New("BROWSER_VIEWPORT_WIDTH and BROWSER_VIEWPORT_HEIGHT must be positive"))
	}
	if c.Database.Enabled && c.Database.MaxConns < 1 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be at least 1"))
	}
	if c.Database.Enabled && (c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns) {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.Database.MinConns))
	}
	if c.Database.MaxConnLifetime < 0 || c.Database.MaxConnIdleTime < 0 {
		errs = append(errs, errors.New("DB_MAX_CONN_LIFETIME and DB_MAX_CONN_IDLE cannot be negative"))
	}
	if c.Redis.Enabled && c.Redis.Stream == "" {
		errs = append(errs, errors.New("REDIS_STREAM must not be empty"))
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 1 {
		errs = append(errs, fmt.Errorf("LOG_MAX_SIZE_MB must be at least 1, got %d", c.Logging.MaxSizeMB))
	}
	if c.Logging.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("LOG_MAX_BACKUPS cannot be negative, got %d", c.Logging.MaxBackups))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
