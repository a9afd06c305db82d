// Package config loads stingbot.yaml, the single configuration file for the
// CLI and the mission worker.
//
// There is no global configuration: callers Load a *Config and pass the
// pieces they need to each component.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/stingbot/guardrail"
	"github.com/zero-day-ai/stingbot/llm"
)

// File names searched by LoadFromDir.
var fileNames = []string{"stingbot.yaml", "stingbot.yml"}

// Environment overrides.
const (
	EnvWorkspace = "STINGBOT_WORKSPACE"
	EnvAPIKey    = "STINGBOT_LLM_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// Config is the root of stingbot.yaml.
type Config struct {
	Workspace  string           `yaml:"workspace"`
	Mission    MissionConfig    `yaml:"mission"`
	Guardrails guardrail.Config `yaml:"guardrails"`
	LLM        LLMConfig        `yaml:"llm"`
	State      StateConfig      `yaml:"state"`
	Queue      QueueConfig      `yaml:"queue"`
	Serve      ServeConfig      `yaml:"serve"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// MissionConfig controls the supervisor loop.
type MissionConfig struct {
	// MaxTurns is the turn budget per mission.
	// Default: 15
	MaxTurns int `yaml:"max_turns"`

	// TaskTruncate is how many characters of a task are kept in edge labels.
	// Default: 50
	TaskTruncate int `yaml:"task_truncate"`

	// GuardTargets enables the pre-dispatch target check.
	GuardTargets bool `yaml:"guard_targets,omitempty"`

	// CommandTimeout bounds each shell command run by an agent.
	// Format: Go duration string (e.g., "5m")
	// Default: 5m
	CommandTimeout string `yaml:"command_timeout,omitempty"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	llm.ProviderConfig `yaml:",inline"`

	// MaxRetries is the number of attempts per query.
	// Default: 3
	MaxRetries uint `yaml:"max_retries"`
}

// StateConfig configures attack-graph mirrors in addition to the local
// file.
type StateConfig struct {
	Redis RedisMirror `yaml:"redis"`
	Etcd  EtcdMirror  `yaml:"etcd"`
}

// RedisMirror mirrors snapshots into Redis.
type RedisMirror struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`

	// TTL is a Go duration string; empty keeps keys forever.
	TTL string `yaml:"ttl,omitempty"`
}

// EtcdMirror mirrors snapshots into etcd.
type EtcdMirror struct {
	Enabled     bool     `yaml:"enabled"`
	Endpoints   []string `yaml:"endpoints,omitempty"`
	Namespace   string   `yaml:"namespace,omitempty"`
	DialTimeout string   `yaml:"dial_timeout,omitempty"`
}

// QueueConfig configures the Redis mission queue.
type QueueConfig struct {
	URL          string `yaml:"url"`
	Name         string `yaml:"name,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	History      string `yaml:"history,omitempty"`
	HistoryLimit int64  `yaml:"history_limit,omitempty"`

	// PollTimeout is a Go duration string.
	// Default: 5s
	PollTimeout string `yaml:"poll_timeout,omitempty"`
}

// ServeConfig configures the worker daemon.
type ServeConfig struct {
	Port            int    `yaml:"port"`
	GracefulTimeout string `yaml:"graceful_timeout,omitempty"`
	TLSCertFile     string `yaml:"tls_cert_file,omitempty"`
	TLSKeyFile      string `yaml:"tls_key_file,omitempty"`
}

// TelemetryConfig toggles span export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workspace: ".",
		Mission: MissionConfig{
			MaxTurns:       15,
			TaskTruncate:   50,
			CommandTimeout: "5m",
		},
		LLM: LLMConfig{
			ProviderConfig: llm.ProviderConfig{
				Provider:    llm.ProviderOllama,
				Model:       "llama3",
				Temperature: 0.2,
			},
			MaxRetries: 3,
		},
		State: StateConfig{
			Etcd: EtcdMirror{Namespace: "stingbot", DialTimeout: "5s"},
		},
		Queue: QueueConfig{
			URL:         "redis://localhost:6379",
			PollTimeout: "5s",
		},
		Serve: ServeConfig{
			Port:            50051,
			GracefulTimeout: "30s",
		},
		Telemetry: TelemetryConfig{ServiceName: "stingbot"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path, layering it over Default and applying environment
// overrides. A directory is searched for stingbot.yaml or stingbot.yml.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range fileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no stingbot.yaml or stingbot.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set, otherwise returns Default with
// environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv applies environment overrides. Secrets are only taken from the
// environment when the file leaves them empty.
func (c *Config) ApplyEnv() {
	if ws := os.Getenv(EnvWorkspace); ws != "" {
		c.Workspace = ws
	}
	if c.LLM.APIKey == "" {
		if key := os.Getenv(EnvAPIKey); key != "" {
			c.LLM.APIKey = key
		} else if strings.EqualFold(c.LLM.Provider, llm.ProviderOpenAI) {
			c.LLM.APIKey = os.Getenv(EnvOpenAIKey)
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Workspace) == "" {
		errs = append(errs, errors.New("workspace is required"))
	}
	if c.Mission.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("mission.max_turns must be positive, got %d", c.Mission.MaxTurns))
	}
	if c.Mission.TaskTruncate <= 0 {
		errs = append(errs, fmt.Errorf("mission.task_truncate must be positive, got %d", c.Mission.TaskTruncate))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOllama, llm.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.LLM.MaxRetries == 0 {
		errs = append(errs, errors.New("llm.max_retries must be at least 1"))
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port %d is out of range", c.Serve.Port))
	}
	if c.State.Redis.Enabled && c.State.Redis.URL == "" && c.Queue.URL == "" {
		errs = append(errs, errors.New("state.redis.url is required when the redis mirror is enabled"))
	}
	if c.State.Etcd.Enabled && len(c.State.Etcd.Endpoints) == 0 {
		errs = append(errs, errors.New("state.etcd.endpoints is required when the etcd mirror is enabled"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	for _, d := range []struct{ field, value string }{
		{"mission.command_timeout", c.Mission.CommandTimeout},
		{"state.redis.ttl", c.State.Redis.TTL},
		{"state.etcd.dial_timeout", c.State.Etcd.DialTimeout},
		{"queue.poll_timeout", c.Queue.PollTimeout},
		{"serve.graceful_timeout", c.Serve.GracefulTimeout},
	} {
		if d.value == "" {
			continue
		}
		if v, err := time.ParseDuration(d.value); err != nil || v < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", d.field, d.value))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CommandTimeout returns mission.command_timeout, defaulting to 5m.
func (c *Config) CommandTimeout() time.Duration {
	return durationOr(c.Mission.CommandTimeout, 5*time.Minute)
}

// PollTimeout returns queue.poll_timeout, defaulting to 5s.
func (c *Config) PollTimeout() time.Duration {
	return durationOr(c.Queue.PollTimeout, 5*time.Second)
}

// GracefulTimeout returns serve.graceful_timeout, defaulting to 30s.
func (c *Config) GracefulTimeout() time.Duration {
	return durationOr(c.Serve.GracefulTimeout, 30*time.Second)
}

// RedisTTL returns state.redis.ttl; zero means no expiry.
func (c *Config) RedisTTL() time.Duration {
	return durationOr(c.State.Redis.TTL, 0)
}

// EtcdDialTimeout returns state.etcd.dial_timeout, defaulting to 5s.
func (c *Config) EtcdDialTimeout() time.Duration {
	return durationOr(c.State.Etcd.DialTimeout, 5*time.Second)
}

// StateRedisURL returns the Redis URL for the state mirror, falling back to
// the queue URL.
func (c *Config) StateRedisURL() string {
	if c.State.Redis.URL != "" {
		return c.State.Redis.URL
	}
	return c.Queue.URL
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s)
}
