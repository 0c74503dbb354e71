// Package config loads tuido's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sync backends.
const (
	BackendNone   = "none"
	BackendCalDAV = "caldav"
	BackendGoogle = "google"
)

// Config is the root configuration document.
type Config struct {
	Database string       `yaml:"database"`
	Log      LogConfig    `yaml:"log"`
	Sync     SyncConfig   `yaml:"sync"`
	CalDAV   CalDAVConfig `yaml:"caldav"`
	Google   GoogleConfig `yaml:"google"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SyncConfig controls the calendar synchronization cycle.
type SyncConfig struct {
	Backend string `yaml:"backend"`
	// Calendar names the target calendar for pushes. Empty selects the first one.
	Calendar      string        `yaml:"calendar"`
	WindowBack    time.Duration `yaml:"window_back"`
	WindowAhead   time.Duration `yaml:"window_ahead"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryWait     time.Duration `yaml:"retry_wait"`
	ConflictDir   string        `yaml:"conflict_dir"`
	LockFile      string        `yaml:"lock_file"`
}

// CalDAVConfig holds the CalDAV endpoint and credentials.
type CalDAVConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// PasswordEnv names an environment variable holding the password.
	PasswordEnv string        `yaml:"password_env"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GoogleConfig holds the OAuth client and token files for Google Calendar.
type GoogleConfig struct {
	CredentialsFile string        `yaml:"credentials_file"`
	TokenFile       string        `yaml:"token_file"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Window returns the sync window around now.
func (s SyncConfig) Window(now time.Time) (time.Time, time.Time) {
	return now.Add(-s.WindowBack), now.Add(s.WindowAhead)
}

// DefaultPath returns ~/.config/tuido/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tuido", "config.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Database: filepath.Join(home, ".local", "share", "tuido", "tasks.db"),
		Log:      LogConfig{Level: "info"},
		Sync: SyncConfig{
			Backend:       BackendNone,
			WindowBack:    30 * 24 * time.Hour,
			WindowAhead:   90 * 24 * time.Hour,
			RetryAttempts: 3,
			RetryWait:     200 * time.Millisecond,
			ConflictDir:   filepath.Join(home, ".cache", "tuido", "conflicts"),
			LockFile:      filepath.Join(home, ".cache", "tuido", "sync.lock"),
		},
		CalDAV: CalDAVConfig{Timeout: 30 * time.Second},
		Google: GoogleConfig{
			CredentialsFile: filepath.Join(home, ".config", "tuido", "google_credentials.json"),
			TokenFile:       filepath.Join(home, ".config", "tuido", "google_token.json"),
			Timeout:         30 * time.Second,
		},
	}
}

// Load reads the config file at path over the defaults. An empty path uses
// DefaultPath; a missing file yields the defaults. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.expandPaths()
	cfg.CalDAV.resolvePassword()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.Database = expandHome(c.Database)
	c.Log.File = expandHome(c.Log.File)
	c.Sync.ConflictDir = expandHome(c.Sync.ConflictDir)
	c.Sync.LockFile = expandHome(c.Sync.LockFile)
	c.Google.CredentialsFile = expandHome(c.Google.CredentialsFile)
	c.Google.TokenFile = expandHome(c.Google.TokenFile)
}

func (c *CalDAVConfig) resolvePassword() {
	if c.Password != "" || c.PasswordEnv == "" {
		return
	}
	c.Password = os.Getenv(c.PasswordEnv)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
