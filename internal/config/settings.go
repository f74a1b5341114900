package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override config.yaml.
const (
	EnvAPIURL       = "TASKMAN_API_URL"
	EnvIssuer       = "TASKMAN_ISSUER"
	EnvClientID     = "TASKMAN_CLIENT_ID"
	EnvClientSecret = "TASKMAN_CLIENT_SECRET"
	EnvPageSize     = "TASKMAN_PAGE_SIZE"
	EnvLogLevel     = "TASKMAN_LOG_LEVEL"
)

// Duration is a time.Duration read from YAML as a Go duration string.
type Duration time.Duration

// UnmarshalYAML parses "25s"-style durations.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration back in Go syntax.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load reads config.yaml (if present) and applies environment overrides.
// A missing file is not an error: settings may come from the environment alone.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case err == nil:
		var s Settings
		if err := yaml.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse %s: %w", SettingsFile, err)
		}
		c.Settings = s
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	if err := c.Settings.applyEnv(os.LookupEnv); err != nil {
		return err
	}
	c.Settings.applyDefaults()
	return nil
}

// Save writes the current settings to config.yaml with mode 0600.
func (c *Config) Save() error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(&c.Settings)
	if err != nil {
		return err
	}
	return os.WriteFile(c.SettingsPath(), data, 0600)
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		s.APIURL = v
	}
	if v, ok := lookup(EnvIssuer); ok && v != "" {
		s.Issuer = v
	}
	if v, ok := lookup(EnvClientID); ok && v != "" {
		s.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok && v != "" {
		s.ClientSecret = v
	}
	if v, ok := lookup(EnvPageSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid %s: %s", EnvPageSize, v)
		}
		s.PageSize = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		s.LogLevel = v
	}
	return nil
}

func (s *Settings) applyDefaults() {
	if len(s.Scopes) == 0 {
		s.Scopes = append([]string(nil), DefaultScopes...)
	}
	if s.CallbackPort == 0 {
		s.CallbackPort = DefaultCallbackPort
	}
	if s.RenewInterval <= 0 {
		s.RenewInterval = Duration(DefaultRenewInterval)
	}
	if s.RefreshWindow <= 0 {
		s.RefreshWindow = Duration(DefaultRefreshWindow)
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	s.APIURL = strings.TrimRight(s.APIURL, "/")
}

// Validate reports the settings required to reach the backend that are missing.
func (s Settings) Validate() error {
	var missing []string
	if s.APIURL == "" {
		missing = append(missing, "api_url")
	}
	if s.Issuer == "" {
		missing = append(missing, "issuer")
	}
	if s.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
