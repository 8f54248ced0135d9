// Package config loads agent configuration from YAML with defaults and
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcoury/aish/internal/executor"
	"github.com/rcoury/aish/internal/oracle"
	"github.com/rcoury/aish/internal/recovery"
)

// RetryConfig bounds the error recovery loop.
type RetryConfig struct {
	// MaxRetries caps retries of one command.
	MaxRetries int `yaml:"max_retries"`

	// MaxConsecutiveFailures aborts the run after this many failures in a
	// row across different commands.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	// ElevationTool is prefixed to commands that fail with permission
	// errors, e.g. "sudo" or "doas".
	ElevationTool string `yaml:"elevation_tool"`
}

// ExecutorConfig tunes command execution and the safety gate.
type ExecutorConfig struct {
	// AllowlistExtras are appended to the built-in read-only allowlist.
	AllowlistExtras []string `yaml:"allowlist_extras"`

	// AutoApprove skips the confirmation prompt entirely. Dangerous.
	AutoApprove bool `yaml:"auto_approve"`

	// GracePeriod is how long a cancelled local command gets between
	// SIGTERM and SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period"`
}

// JournalConfig controls the execution audit journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the root configuration.
type Config struct {
	LogLevel string                         `yaml:"log_level"`
	Oracle   oracle.Config                  `yaml:"oracle"`
	Retry    RetryConfig                    `yaml:"retry"`
	Executor ExecutorConfig                 `yaml:"executor"`
	SSHHosts map[string]executor.HostConfig `yaml:"ssh_hosts"`
	Journal  JournalConfig                  `yaml:"journal"`

	// MaxContextFileSize caps each --context file, in bytes.
	MaxContextFileSize int64 `yaml:"max_context_file_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Oracle: oracle.Config{
			BaseURL:     "http://localhost:11434/v1",
			Model:       "qwen2.5-coder:14b",
			Temperature: oracle.DefaultTemperature,
		},
		Retry: RetryConfig{
			MaxRetries:             recovery.DefaultMaxRetries,
			MaxConsecutiveFailures: recovery.DefaultMaxConsecutiveFailures,
			ElevationTool:          recovery.DefaultElevationTool,
		},
		Executor: ExecutorConfig{
			GracePeriod: executor.DefaultGracePeriod,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    defaultJournalPath(),
		},
		MaxContextFileSize: 1 << 20,
	}
}

func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aish/journal.db"
	}
	return filepath.Join(home, ".aish", "journal.db")
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aish/config.yaml"
	}
	return filepath.Join(home, ".aish", "config.yaml")
}

// Load reads the config file at path over the defaults. A missing file
// is not an error; a malformed one is. The oracle API key additionally
// falls back to AISH_API_KEY, then OPENAI_API_KEY.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if cfg.Oracle.APIKey == "" {
		if key := os.Getenv("AISH_API_KEY"); key != "" {
			cfg.Oracle.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Oracle.APIKey = key
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", c.LogLevel)
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model must not be empty")
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return fmt.Errorf("oracle.temperature %v out of range [0, 2]", c.Oracle.Temperature)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if c.Retry.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("retry.max_consecutive_failures must be at least 1")
	}
	if c.Executor.GracePeriod < 0 {
		return fmt.Errorf("executor.grace_period must not be negative")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path must be set when the journal is enabled")
	}
	if c.MaxContextFileSize <= 0 {
		return fmt.Errorf("max_context_file_size must be positive")
	}
	return nil
}
