package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.Tracker.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Tracker.InactivityThreshold)

	def := cfg.WorkdayDefinition()
	assert.Equal(t, 8*time.Hour, def.WorkdayDuration)
	assert.Equal(t, 50*time.Minute, def.AllowedBreakDuration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"poll below minimum", func(c *Config) { c.Tracker.PollInterval = 500 * time.Millisecond }},
		{"poll above maximum", func(c *Config) { c.Tracker.PollInterval = time.Hour }},
		{"zero threshold", func(c *Config) { c.Tracker.InactivityThreshold = 0 }},
		{"break longer than day", func(c *Config) { c.Workday.AllowedBreak = 9 * time.Hour }},
		{"bad port", func(c *Config) { c.Web.Port = 70000 }},
		{"empty host", func(c *Config) { c.Web.Host = "" }},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSetters(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.SetPollInterval(30*time.Second))
	assert.Equal(t, 30*time.Second, cfg.Tracker.PollInterval)
	assert.Error(t, cfg.SetPollInterval(100*time.Millisecond))
	assert.Error(t, cfg.SetPollInterval(10*time.Minute))

	require.NoError(t, cfg.SetWebPort(8080))
	assert.Equal(t, "localhost:8080", cfg.APIAddr())
	assert.Error(t, cfg.SetWebPort(0))
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tracker:
  poll_interval: 10s
  inactivity_threshold: 2m
workday:
  duration: 7h30m
  allowed_break: 30m
web:
  port: 9090
`), 0o644))

	t.Setenv("WORKTALLY_WEB_PORT", "9191")
	t.Setenv("WORKTALLY_POLL_INTERVAL", "20")
	t.Setenv("WORKTALLY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.Tracker.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Tracker.InactivityThreshold)
	assert.Equal(t, 7*time.Hour+30*time.Minute, cfg.Workday.Duration)
	assert.Equal(t, 30*time.Minute, cfg.Workday.AllowedBreak)
	assert.Equal(t, 9191, cfg.Web.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "localhost", cfg.Web.Host, "untouched defaults survive")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Tracker, cfg.Tracker)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("tracker: [oops"), 0o644))
	_, err := Load(broken)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("web:\n  host: \"\"\n"), 0o644))
	_, err = Load(invalid)
	assert.Error(t, err)
}

func TestLoadFromEnv_IgnoresMalformed(t *testing.T) {
	t.Setenv("WORKTALLY_POLL_INTERVAL", "soon")
	t.Setenv("WORKTALLY_WEB_PORT", "-1")
	t.Setenv("WORKTALLY_ALLOWED_BREAK", "45m")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, 5*time.Second, cfg.Tracker.PollInterval)
	assert.Equal(t, Default().Web.Port, cfg.Web.Port)
	assert.Equal(t, 45*time.Minute, cfg.Workday.AllowedBreak)
}

func TestLoadFromEnv_AllowedOrigins(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.Web.AllowedOrigins)

	t.Setenv("WORKTALLY_WEB_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	LoadFromEnv(cfg)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Web.AllowedOrigins)
}

func TestString(t *testing.T) {
	out := Default().String()
	assert.Contains(t, out, "Poll Interval: 5s")
	assert.Contains(t, out, "Allowed Break: 50m0s")
}
