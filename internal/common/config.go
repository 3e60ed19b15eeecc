package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Worker      WorkerConfig    `toml:"worker"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// QueueConfig controls job queue behavior shared by server and workers
type QueueConfig struct {
	PollInterval        string `toml:"poll_interval"`         // e.g. "5s" - how often a worker polls for a lease
	HeartbeatInterval   string `toml:"heartbeat_interval"`    // e.g. "30s" - lease ownership refresh
	LockTimeoutSeconds  int    `toml:"lock_timeout_seconds"`  // default lease expiry (3600)
	ReclaimInterval     string `toml:"reclaim_interval"`      // e.g. "5m" - how often idle workers reclaim expired leases
	ReclaimAfterMinutes int    `toml:"reclaim_after_minutes"` // minimum lock age for the periodic reclaim pass (60)
	RetentionDays       int    `toml:"retention_days"`        // terminal job retention before purge (7)
}

// CrawlerConfig contains browser session and crawl engine configuration
type CrawlerConfig struct {
	UserAgent         string        `toml:"user_agent"`          // Default user agent string
	UserAgentRotation bool          `toml:"user_agent_rotation"` // Rotate a realistic user agent on each browser open
	Headless          bool          `toml:"headless"`            // Run Chrome headless (default true)
	NoSandbox         bool          `toml:"no_sandbox"`          // Pass --no-sandbox (needed in containers)
	DisableGPU        bool          `toml:"disable_gpu"`         // Pass --disable-gpu
	RequestTimeout    time.Duration `toml:"request_timeout"`     // Per-navigation timeout (30s)
	SettleTimeout     time.Duration `toml:"settle_timeout"`      // Post-load network settle wait (15s)
	MinRequestDelay   time.Duration `toml:"min_request_delay"`   // Politeness delay lower bound (500ms)
	MaxRequestDelay   time.Duration `toml:"max_request_delay"`   // Politeness delay upper bound (1500ms)
	IdleBrowserClose  time.Duration `toml:"idle_browser_close"`  // Close browser after this long without a job (5m)
	MaxPagesPerJob    int           `toml:"max_pages_per_job"`   // Hard page ceiling per crawl run (1000)
	MaxJobDuration    time.Duration `toml:"max_job_duration"`    // Wall-clock ceiling per job (1h)
}

// SchedulerConfig controls the bootstrap scheduler and maintenance passes
type SchedulerConfig struct {
	Enabled           bool   `toml:"enabled"`
	BootstrapInterval string `toml:"bootstrap_interval"` // e.g. "30m" - scan for never-scraped sources
	CleanupSchedule   string `toml:"cleanup_schedule"`   // cron expression for the retention sweep
}

// WorkerConfig holds the crawl worker inputs. Workers run as goroutines
// inside the server process; the store is single-process, so scale comes
// from Count, not from extra processes.
type WorkerConfig struct {
	ID       string `toml:"id"`        // Stable worker id; generated when empty
	Count    int    `toml:"count"`     // Number of crawl workers to run (0 disables crawling)
	DataRoot string `toml:"data_root"` // Root directory for browser user-data dirs and job logs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
	JobLogs    bool     `toml:"job_logs"`    // Write per-job JSON-lines log files under the data root
}

// DefaultConfig returns the baseline configuration before file/env overrides
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/colligo.db",
			},
		},
		Queue: QueueConfig{
			PollInterval:        "5s",
			HeartbeatInterval:   "30s",
			LockTimeoutSeconds:  3600,
			ReclaimInterval:     "5m",
			ReclaimAfterMinutes: 60,
			RetentionDays:       7,
		},
		Crawler: CrawlerConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			UserAgentRotation: true,
			Headless:          true,
			NoSandbox:         false,
			DisableGPU:        true,
			RequestTimeout:    30 * time.Second,
			SettleTimeout:     15 * time.Second,
			MinRequestDelay:   500 * time.Millisecond,
			MaxRequestDelay:   1500 * time.Millisecond,
			IdleBrowserClose:  5 * time.Minute,
			MaxPagesPerJob:    1000,
			MaxJobDuration:    time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			BootstrapInterval: "30m",
			CleanupSchedule:   "0 3 * * *", // Daily retention sweep
		},
		Worker: WorkerConfig{
			Count:    1,
			DataRoot: "./data",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			JobLogs:    true,
		},
	}
}

// LoadFromFile loads configuration from a TOML file over the defaults,
// then applies environment variable overrides.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides maps the documented process environment onto the config.
// Only these are read, and only at startup: database path, worker id, data
// root, log level.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COLLIGO_DB_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("COLLIGO_WORKER_ID"); v != "" {
		config.Worker.ID = v
	}
	if v := os.Getenv("COLLIGO_DATA_ROOT"); v != "" {
		config.Worker.DataRoot = v
	}
	if v := os.Getenv("COLLIGO_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage.badger.path is required")
	}
	if c.Queue.LockTimeoutSeconds <= 0 {
		return fmt.Errorf("queue.lock_timeout_seconds must be positive")
	}
	if c.Queue.RetentionDays < 0 {
		return fmt.Errorf("queue.retention_days must be non-negative")
	}
	if c.Worker.Count < 0 {
		return fmt.Errorf("worker.count must be non-negative")
	}
	if c.Crawler.MaxPagesPerJob <= 0 {
		return fmt.Errorf("crawler.max_pages_per_job must be positive")
	}
	if c.Crawler.MinRequestDelay > c.Crawler.MaxRequestDelay {
		return fmt.Errorf("crawler.min_request_delay must not exceed max_request_delay")
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if _, err := c.HeartbeatInterval(); err != nil {
		return err
	}
	if _, err := c.ReclaimInterval(); err != nil {
		return err
	}
	if _, err := c.BootstrapInterval(); err != nil {
		return err
	}
	return nil
}

// PollInterval returns the parsed worker poll interval
func (c *Config) PollInterval() (time.Duration, error) {
	return parseDuration("queue.poll_interval", c.Queue.PollInterval, 5*time.Second)
}

// HeartbeatInterval returns the parsed heartbeat interval
func (c *Config) HeartbeatInterval() (time.Duration, error) {
	return parseDuration("queue.heartbeat_interval", c.Queue.HeartbeatInterval, 30*time.Second)
}

// ReclaimInterval returns the parsed expired-lease reclaim interval
func (c *Config) ReclaimInterval() (time.Duration, error) {
	return parseDuration("queue.reclaim_interval", c.Queue.ReclaimInterval, 5*time.Minute)
}

// BootstrapInterval returns the parsed bootstrap scan interval
func (c *Config) BootstrapInterval() (time.Duration, error) {
	return parseDuration("scheduler.bootstrap_interval", c.Scheduler.BootstrapInterval, 30*time.Minute)
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", name, value)
	}
	return d, nil
}
