package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Capture     CaptureConfig   `toml:"capture"`
	Render      RenderConfig    `toml:"render"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Housekeeping HousekeepingConfig `toml:"housekeeping"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig configures the embedded BadgerDB persistence adapter.
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
}

// CaptureConfig holds capture settings. ScopeMatchMode selects the capture
// service's scope mode. DefaultWorkers, MaxWorkers, DefaultInterRequestDelayMs
// and DefaultMaxExternalHops are only reported in the startup banner; they are
// not applied to jobs, which fall back to the capture package's built-in
// defaults (5 workers, max 10, 500 ms, 1 hop) when a Start request omits them.
type CaptureConfig struct {
	DefaultWorkers             int    `toml:"default_workers"`
	MaxWorkers                 int    `toml:"max_workers"`
	DefaultInterRequestDelayMs int    `toml:"default_inter_request_delay_ms"`
	DefaultMaxExternalHops     int    `toml:"default_max_external_hops"`
	ScopeMatchMode             string `toml:"scope_match_mode"` // "strict" or "loose"
}

// RenderConfig configures the headless render slot pool shared by capture jobs.
type RenderConfig struct {
	WaitBudgetMs             int    `toml:"wait_budget_ms"`
	ContentStabilityBudgetMs int    `toml:"content_stability_budget_ms"`
	ChromeExecPath            string `toml:"chrome_exec_path"` // empty = let chromedp locate it
	Headless                  bool   `toml:"headless"`
}

// WebSocketConfig configures the progress bus's live fan-out transport.
type WebSocketConfig struct {
	ReadBufferSize  int `toml:"read_buffer_size"`
	WriteBufferSize int `toml:"write_buffer_size"`
	SubscriberQueue int `toml:"subscriber_queue"` // per-subscriber buffered channel size before events are dropped
}

// HousekeepingConfig schedules the periodic error-log retention purge.
type HousekeepingConfig struct {
	PurgeSchedule string `toml:"purge_schedule"` // cron expression, e.g. "0 0 3 * * *"
}

// NewDefaultConfig returns a Config populated with production-sane defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Capture: CaptureConfig{
			DefaultWorkers:             5,
			MaxWorkers:                 10,
			DefaultInterRequestDelayMs: 500,
			DefaultMaxExternalHops:     1,
			ScopeMatchMode:             "loose",
		},
		Render: RenderConfig{
			WaitBudgetMs:             10_000,
			ContentStabilityBudgetMs: 1_500,
			Headless:                 true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SubscriberQueue: 64,
		},
		Housekeeping: HousekeepingConfig{
			PurgeSchedule: "0 0 3 * * *", // daily at 03:00
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
// path may be empty, in which case only defaults and env overrides apply.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

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
	return config, nil
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2
// -> ... -> env. Later files override fields set by earlier ones. Empty
// paths are skipped; if no paths are given, only defaults and env overrides
// apply.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SITECAPTURE_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SITECAPTURE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SITECAPTURE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("SITECAPTURE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("SITECAPTURE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SITECAPTURE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SITECAPTURE_LOG_OUTPUT"); output != "" {
		outputs := make([]string, 0)
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if workers := os.Getenv("SITECAPTURE_CAPTURE_DEFAULT_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Capture.DefaultWorkers = w
		}
	}
	if scopeMode := os.Getenv("SITECAPTURE_CAPTURE_SCOPE_MATCH_MODE"); scopeMode != "" {
		config.Capture.ScopeMatchMode = scopeMode
	}

	if execPath := os.Getenv("SITECAPTURE_RENDER_CHROME_EXEC_PATH"); execPath != "" {
		config.Render.ChromeExecPath = execPath
	}

	if schedule := os.Getenv("SITECAPTURE_HOUSEKEEPING_PURGE_SCHEDULE"); schedule != "" {
		config.Housekeeping.PurgeSchedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config. Flags have
// the highest priority, above file and environment.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateCronSchedule validates a 6-field (seconds-first) cron expression,
// the format robfig/cron/v3 expects for the housekeeping purge schedule.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepClone returns a deep copy of the Config, so callers can hand out
// snapshots without risking shared-slice mutation.
func DeepClone(c *Config) *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}
	return &clone
}
