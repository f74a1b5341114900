// Package config handles XDG configuration directory, file paths and settings.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"taskman/internal/logging"
)

const (
	// AppName is the application directory name.
	AppName = "taskman"

	// SettingsFile is the YAML settings filename.
	SettingsFile = "config.yaml"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// LogFile receives logs while the terminal UI owns the screen.
	LogFile = "taskman.log"
)

// Defaults for settings missing from config.yaml.
const (
	DefaultRenewInterval = 25 * time.Second
	DefaultRefreshWindow = 30 * time.Second
	DefaultPageSize      = 10
	DefaultCallbackPort  = 8085
)

// DefaultScopes are requested from the identity provider when none are configured.
var DefaultScopes = []string{"openid", "profile", "email"}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are loaded from config.yaml and the environment.
	Settings Settings

	// Logger is set by the dispatcher. Nil means logs are discarded.
	Logger *log.Logger
}

// Log returns the configured logger, never nil.
func (c *Config) Log() *log.Logger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}

// Settings are the user-editable options.
type Settings struct {
	// APIURL is the task backend base URL, e.g.
	// "http://localhost:8084/task-management/api/v1".
	APIURL string `yaml:"api_url"`

	// Issuer is the OIDC issuer URL, e.g.
	// "http://localhost:8080/realms/tasks".
	Issuer string `yaml:"issuer"`

	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	// CallbackPort is the first loopback port tried for the login redirect.
	CallbackPort int `yaml:"callback_port,omitempty"`

	// RenewInterval and RefreshWindow use Go duration syntax ("25s").
	RenewInterval Duration `yaml:"renew_interval,omitempty"`
	RefreshWindow Duration `yaml:"refresh_window,omitempty"`

	PageSize int    `yaml:"page_size,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskman or $HOME/.config/taskman.
// Settings are left at their defaults; call Load to read config.yaml.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	cfg.Settings.applyDefaults()
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// LogPath returns the path to the UI log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, LogFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSettings checks if config.yaml exists.
func (c *Config) HasSettings() bool {
	_, err := os.Stat(c.SettingsPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
