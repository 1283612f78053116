package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parizob/Peardox-2.0-sub001/types"
)

// Config holds all application configuration
type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	Backend    BackendConfig  `yaml:"backend"`
	Site       SiteConfig     `yaml:"site"`
	Snapshot   SnapshotConfig `yaml:"snapshot"`
	Refresh    RefreshConfig  `yaml:"refresh"`
	DBPath     string         `yaml:"db_path"`
	SkillLevel string         `yaml:"skill_level"`
	LogLevel   string         `yaml:"log_level"`
}

// BackendConfig points at the hosted paper-summaries backend
type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SiteConfig holds the defaults used for page metadata
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	BaseURL     string `yaml:"base_url"`
}

// SnapshotConfig configures the S3 collection snapshot. An empty bucket
// disables snapshotting.
type SnapshotConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// RefreshConfig schedules the daily collection refresh
type RefreshConfig struct {
	Time     string `yaml:"time"`
	Timezone string `yaml:"timezone"`
}

// Defaults returns a Config with all default values set
func Defaults() Config {
	return Config{
		ListenAddr: ":8080",
		Backend: BackendConfig{
			TimeoutSecs: 30,
		},
		Site: SiteConfig{
			Title:       "Peardox",
			Description: "AI research paper summaries for every skill level",
		},
		Snapshot: SnapshotConfig{
			Prefix: "snapshots",
			Region: "us-east-1",
		},
		Refresh: RefreshConfig{
			Time:     "06:00",
			Timezone: "UTC",
		},
		DBPath:     "./peardox.db",
		SkillLevel: string(types.DefaultSkillLevel),
		LogLevel:   "INFO",
	}
}

// Load reads a YAML config file and returns a validated Config.
// PEARDOX_CONFIG overrides the file path, PEARDOX_BACKEND_URL and
// PEARDOX_DB override individual fields.
func Load(path string) (Config, error) {
	if envPath := os.Getenv("PEARDOX_CONFIG"); envPath != "" {
		path = envPath
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	if envURL := os.Getenv("PEARDOX_BACKEND_URL"); envURL != "" {
		cfg.Backend.BaseURL = envURL
	}
	if envDB := os.Getenv("PEARDOX_DB"); envDB != "" {
		cfg.DBPath = envDB
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that required fields are present and values are valid
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.TimeoutSecs <= 0 {
		return fmt.Errorf("backend.timeout_secs must be positive")
	}

	if !types.SkillLevel(c.SkillLevel).Valid() {
		return fmt.Errorf("invalid skill_level %q", c.SkillLevel)
	}

	if err := ValidateTime(c.Refresh.Time); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Refresh.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Refresh.Timezone, err)
	}

	return nil
}

// ValidateTime checks that a time string is in valid HH:MM 24-hour format
func ValidateTime(t string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}

	for _, i := range []int{0, 1, 3, 4} {
		if t[i] < '0' || t[i] > '9' {
			return fmt.Errorf("invalid time format %q: must be HH:MM", t)
		}
	}

	hour := (int(t[0]-'0') * 10) + int(t[1]-'0')
	minute := (int(t[3]-'0') * 10) + int(t[4]-'0')

	if hour > 23 {
		return fmt.Errorf("invalid time %q: hour must be 0-23", t)
	}
	if minute > 59 {
		return fmt.Errorf("invalid time %q: minute must be 0-59", t)
	}

	return nil
}
