package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
backend:
  base_url: https://api.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30, cfg.Backend.TimeoutSecs)
	assert.Equal(t, "beginner", cfg.SkillLevel)
	assert.Equal(t, "06:00", cfg.Refresh.Time)
	assert.Equal(t, "UTC", cfg.Refresh.Timezone)
	assert.Equal(t, "Peardox", cfg.Site.Title)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9000"
backend:
  base_url: https://api.example.com
  api_key: secret
  timeout_secs: 5
skill_level: advanced
refresh:
  time: "23:30"
  timezone: America/New_York
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "secret", cfg.Backend.APIKey)
	assert.Equal(t, 5, cfg.Backend.TimeoutSecs)
	assert.Equal(t, "advanced", cfg.SkillLevel)
	assert.Equal(t, "23:30", cfg.Refresh.Time)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
backend:
  base_url: https://api.example.com
`)
	t.Setenv("PEARDOX_BACKEND_URL", "https://override.example.com")
	t.Setenv("PEARDOX_DB", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing backend url", func(c *Config) { c.Backend.BaseURL = "" }, "base_url"},
		{"bad timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }, "timeout_secs"},
		{"bad skill level", func(c *Config) { c.SkillLevel = "wizard" }, "skill_level"},
		{"bad refresh time", func(c *Config) { c.Refresh.Time = "25:00" }, "hour"},
		{"bad timezone", func(c *Config) { c.Refresh.Timezone = "Mars/Olympus" }, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Backend.BaseURL = "https://api.example.com"
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTime(t *testing.T) {
	assert.NoError(t, ValidateTime("00:00"))
	assert.NoError(t, ValidateTime("23:59"))
	assert.Error(t, ValidateTime("9:00"))
	assert.Error(t, ValidateTime("09-00"))
	assert.Error(t, ValidateTime("ab:cd"))
	assert.Error(t, ValidateTime("12:60"))
}
