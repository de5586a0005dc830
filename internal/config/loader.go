package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thruflo/taskdeck/internal/auth"
	"github.com/thruflo/taskdeck/internal/logging"
	"github.com/thruflo/taskdeck/internal/task"
)

// Default values for Config.
const (
	DefaultServerPort     = 8374
	DefaultTimezone       = "Local"
	DefaultPrimaryAgent   = string(task.AgentCodex)
	DefaultHumanName      = "Human"
	DefaultHighlightStyle = "github"
	DefaultLogLevel       = "warn"
)

// Dir is the configuration directory under a base path.
const Dir = ".taskdeck"

// PasswordEnv names the environment variable holding a plain-text password
// to hash at start-up when no hash is configured.
const PasswordEnv = "TASKDECK_PASSWORD"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Display: DisplayConfig{
			Timezone:       DefaultTimezone,
			PrimaryAgent:   DefaultPrimaryAgent,
			HumanName:      DefaultHumanName,
			HighlightStyle: DefaultHighlightStyle,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Path returns the config file path under basePath.
func Path(basePath string) string {
	return filepath.Join(basePath, Dir, "config.yaml")
}

// LoadConfig reads and parses .taskdeck/config.yaml from the given base path.
// If the file doesn't exist, returns default config.
// Applies defaults for any missing fields.
func LoadConfig(basePath string) (*Config, error) {
	data, err := os.ReadFile(Path(basePath))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveConfig writes cfg to .taskdeck/config.yaml under basePath, creating
// the directory if needed. The file may hold a password hash, so it is
// written owner-only.
func SaveConfig(basePath string, cfg *Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(basePath, Dir), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(Path(basePath), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolvePath returns the feed path, resolved against basePath when it is
// relative.
func (f FeedConfig) ResolvePath(basePath string) string {
	if f.Path == "" || filepath.IsAbs(f.Path) {
		return f.Path
	}
	return filepath.Join(basePath, f.Path)
}

// ValidateConfig checks that all config values are valid. The feed may be
// left unset; ValidateFeed checks it once flags have been applied.
func ValidateConfig(cfg *Config) error {
	if cfg.Feed.URL != "" && cfg.Feed.Path != "" {
		return ValidationError{Field: "feed", Message: "url and path are mutually exclusive"}
	}
	if cfg.Feed.URL != "" {
		if err := validateURL(cfg.Feed.URL); err != nil {
			return err
		}
	}
	if cfg.Feed.Watch && cfg.Feed.URL != "" {
		return ValidationError{Field: "feed.watch", Message: "only supported for feed.path"}
	}

	if err := ValidateServerConfig(&cfg.Server); err != nil {
		return err
	}

	if _, err := cfg.Display.Location(); err != nil {
		return ValidationError{Field: "display.timezone", Message: err.Error()}
	}
	switch task.Agent(cfg.Display.PrimaryAgent) {
	case task.AgentClaude, task.AgentCodex:
	default:
		return ValidationError{Field: "display.primary_agent", Message: "must be claude or codex"}
	}
	if strings.TrimSpace(cfg.Display.HumanName) == "" {
		return ValidationError{Field: "display.human_name", Message: "required field is empty"}
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return ValidationError{Field: "logging.level", Message: err.Error()}
	}

	return nil
}

// ValidateServerConfig checks that server config values are valid.
func ValidateServerConfig(cfg *ServerConfig) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if cfg.PasswordHash != "" {
		if err := auth.CheckHash(cfg.PasswordHash); err != nil {
			return ValidationError{Field: "server.password_hash", Message: err.Error()}
		}
	}
	return nil
}

// ValidateFeed checks that exactly one feed location is configured.
func ValidateFeed(cfg *FeedConfig) error {
	switch {
	case cfg.URL == "" && cfg.Path == "":
		return ValidationError{Field: "feed", Message: "one of url or path is required"}
	case cfg.URL != "" && cfg.Path != "":
		return ValidationError{Field: "feed", Message: "url and path are mutually exclusive"}
	case cfg.URL != "":
		return validateURL(cfg.URL)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: "feed.url", Message: "must be an absolute http(s) URL"}
	}
	return nil
}

// Location resolves the configured timezone. "Local" (or empty) is the
// process's local zone.
func (d DisplayConfig) Location() (*time.Location, error) {
	if d.Timezone == "" || strings.EqualFold(d.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
