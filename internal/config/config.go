package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/actionsum/worktally/internal/workday"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const (
	appDir         = ".config/worktally"
	configFileName = "config.yaml"
	dbFileName     = "worktally.db"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Workday  WorkdayConfig  `yaml:"workday"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // empty means ~/.config/worktally/worktally.db
}

// TrackerConfig holds signal polling and break detection settings
type TrackerConfig struct {
	PollInterval        time.Duration `yaml:"poll_interval" validate:"gt=0"`
	MinPollInterval     time.Duration `yaml:"min_poll_interval" validate:"gt=0"`
	MaxPollInterval     time.Duration `yaml:"max_poll_interval" validate:"gtefield=MinPollInterval"`
	InactivityThreshold time.Duration `yaml:"inactivity_threshold" validate:"gt=0"`
	RetentionDays       int           `yaml:"retention_days" validate:"min=0"`
}

// WorkdayConfig is the shape of a working day
type WorkdayConfig struct {
	Duration     time.Duration `yaml:"duration" validate:"gt=0"`
	AllowedBreak time.Duration `yaml:"allowed_break" validate:"min=0,ltefield=Duration"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file" validate:"required"`
	LogFile string `yaml:"log_file"`
}

// WebConfig holds the API server configuration
type WebConfig struct {
	Host           string   `yaml:"host" validate:"required"`
	Port           int      `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			PollInterval:        5 * time.Second,
			MinPollInterval:     time.Second,
			MaxPollInterval:     300 * time.Second,
			InactivityThreshold: 5 * time.Minute,
			RetentionDays:       90,
		},
		Workday: WorkdayConfig{
			Duration:     8 * time.Hour,
			AllowedBreak: 50 * time.Minute,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/worktally-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/worktally-%d.log", os.Getuid()),
		},
		Web: WebConfig{
			Host:           "localhost",
			Port:           10000 + os.Getuid()%50000,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the poll interval bounds
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return errors.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}
	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return errors.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}
	return nil
}

// SetPollInterval sets the poll interval within the configured bounds
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return errors.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return errors.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// WorkdayDefinition converts the workday section for the accounting engine
func (c *Config) WorkdayDefinition() workday.Definition {
	return workday.Definition{
		WorkdayDuration:      c.Workday.Duration,
		AllowedBreakDuration: c.Workday.AllowedBreak,
	}
}

// APIAddr is the host:port the API listens on
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// DefaultDir returns ~/.config/worktally, creating it when missing
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	dir := filepath.Join(home, appDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create config directory")
	}
	return dir, nil
}

// DatabasePath resolves the configured database path
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v (min %v, max %v)
    Inactivity Threshold: %v
    Retention: %d days
  Workday:
    Duration: %v
    Allowed Break: %v
  Daemon:
    PID File: %s
    Log File: %s
  Web:
    Address: %s
    Allowed Origins: %v
  Log:
    Level: %s
    Format: %s`,
		c.Database.Path,
		c.Tracker.PollInterval, c.Tracker.MinPollInterval, c.Tracker.MaxPollInterval,
		c.Tracker.InactivityThreshold,
		c.Tracker.RetentionDays,
		c.Workday.Duration,
		c.Workday.AllowedBreak,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.APIAddr(),
		c.Web.AllowedOrigins,
		c.Log.Level,
		c.Log.Format,
	)
}
