// Package config holds the chainforge configuration: where chain
// specifications, prompt templates and snippets live, which model
// provider serves invocations, and how the HTTP boundary behaves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all chainforge configuration.
type Config struct {
	// Paths to chain resources.
	Paths PathsConfig `yaml:"paths"`

	// LLM provider configuration.
	LLM LLMConfig `yaml:"llm"`

	// HTTP invocation boundary.
	Server ServerConfig `yaml:"server"`

	// Invocation history store.
	History HistoryConfig `yaml:"history"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig locates chain resources. ChainsDir, PromptsDir and
// SnippetsDir are relative to Root, as are the prompt_file and snippet
// paths inside chain specifications.
type PathsConfig struct {
	Root        string `yaml:"root"`
	ChainsDir   string `yaml:"chains_dir"`
	PromptsDir  string `yaml:"prompts_dir"`
	SnippetsDir string `yaml:"snippets_dir"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// ServerConfig configures the invocation endpoint.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	RequestTimeout string `yaml:"request_timeout"`
}

// HistoryConfig configures the SQLite invocation history.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:        ".",
			ChainsDir:   "chains",
			PromptsDir:  "prompts",
			SnippetsDir: "snippets",
		},
		LLM: LLMConfig{
			Provider: "openai",
			// Model left empty so each provider applies its own default.
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     "120s",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: "300s",
		},
		History: HistoryConfig{
			Enabled:      false,
			DatabasePath: "chainforge.db",
		},
	}
}

// Load reads configuration from path, fills gaps with defaults, and
// applies environment overrides. A missing file yields defaults plus
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LLMTimeout parses the configured model call timeout.
func (c *Config) LLMTimeout() time.Duration {
	return parseDurationOr(c.LLM.Timeout, 120*time.Second)
}

// RequestTimeout parses the configured per-invocation deadline.
func (c *Config) RequestTimeout() time.Duration {
	return parseDurationOr(c.Server.RequestTimeout, 300*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
