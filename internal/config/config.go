// ABOUTME: Configuration loading and parsing for confidant
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete confidant configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Persona  PersonaConfig  `yaml:"persona"`
	Chat     ChatConfig     `yaml:"chat"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OpenAIConfig holds the remote model configuration.
// APIKey is required; its absence is a startup-fatal configuration error.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	BaseURL     string  `yaml:"base_url"`
}

// PersonaConfig holds the assistant persona.
// When both Prompt and PromptFile are set, the file wins.
type PersonaConfig struct {
	Name       string `yaml:"name"`
	Prompt     string `yaml:"prompt"`
	PromptFile string `yaml:"prompt_file"`
}

// ChatConfig holds send-flow tunables
type ChatConfig struct {
	HistoryLimit int           `yaml:"history_limit"`
	ThreadPage   int           `yaml:"thread_page"`
	ReplyTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	ReplyTimeoutRaw string `yaml:"reply_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (set OPENAI_API_KEY or configure it directly)")
	}

	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("chat.history_limit must not be negative")
	}
	if c.Chat.ThreadPage < 0 {
		return fmt.Errorf("chat.thread_page must not be negative")
	}

	return nil
}

// SystemPrompt resolves the persona prompt, reading the prompt file when
// one is configured.
func (c *Config) SystemPrompt() (string, error) {
	if c.Persona.PromptFile != "" {
		data, err := os.ReadFile(c.Persona.PromptFile)
		if err != nil {
			return "", fmt.Errorf("reading persona prompt file: %w", err)
		}
		return string(data), nil
	}
	return c.Persona.Prompt, nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Chat.ReplyTimeoutRaw != "" {
		cfg.Chat.ReplyTimeout, err = time.ParseDuration(cfg.Chat.ReplyTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing reply_timeout %q: %w", cfg.Chat.ReplyTimeoutRaw, err)
		}
	}

	return nil
}
