package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WORKTALLY_"

// LoadFile merges a YAML file into cfg. A missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables override file and default values; malformed values
// are ignored.
func LoadFromEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := parseDuration(os.Getenv(envPrefix + name)); ok {
			*dst = v
		}
	}

	str("DB_PATH", &cfg.Database.Path)

	dur("POLL_INTERVAL", &cfg.Tracker.PollInterval)
	dur("INACTIVITY_THRESHOLD", &cfg.Tracker.InactivityThreshold)
	if v := os.Getenv(envPrefix + "RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.Tracker.RetentionDays = days
		}
	}

	dur("WORKDAY_DURATION", &cfg.Workday.Duration)
	dur("ALLOWED_BREAK", &cfg.Workday.AllowedBreak)

	str("PID_FILE", &cfg.Daemon.PIDFile)
	str("LOG_FILE", &cfg.Daemon.LogFile)

	str("WEB_HOST", &cfg.Web.Host)
	if v := os.Getenv(envPrefix + "WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv(envPrefix + "WEB_ALLOWED_ORIGINS"); v != "" {
		cfg.Web.AllowedOrigins = strings.Split(v, ",")
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
}

// parseDuration accepts Go durations ("90s", "5m") or plain seconds
func parseDuration(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// DefaultFile returns ~/.config/worktally/config.yaml, or the path named by
// WORKTALLY_CONFIG
func DefaultFile() string {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, appDir, configFileName)
}

// Load builds the configuration: defaults, then the YAML file at path (or
// the default file when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile()
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	LoadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
