// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, validation and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "./test.db"

openai:
  api_key: "sk-test"
  model: "gpt-4"
  temperature: 0.7
  max_tokens: 500

persona:
  name: "Tom"
  prompt: "You are Tom."

chat:
  history_limit: 40
  thread_page: 10
  reply_timeout: "45s"

logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("OpenAI.APIKey = %q, want %q", cfg.OpenAI.APIKey, "sk-test")
	}
	if cfg.OpenAI.Model != "gpt-4" {
		t.Errorf("OpenAI.Model = %q, want %q", cfg.OpenAI.Model, "gpt-4")
	}
	if cfg.OpenAI.Temperature != 0.7 {
		t.Errorf("OpenAI.Temperature = %v, want 0.7", cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.MaxTokens != 500 {
		t.Errorf("OpenAI.MaxTokens = %d, want 500", cfg.OpenAI.MaxTokens)
	}
	if cfg.Persona.Name != "Tom" {
		t.Errorf("Persona.Name = %q, want %q", cfg.Persona.Name, "Tom")
	}
	if cfg.Chat.HistoryLimit != 40 {
		t.Errorf("Chat.HistoryLimit = %d, want 40", cfg.Chat.HistoryLimit)
	}
	if cfg.Chat.ThreadPage != 10 {
		t.Errorf("Chat.ThreadPage = %d, want 10", cfg.Chat.ThreadPage)
	}
	if cfg.Chat.ReplyTimeout != 45*time.Second {
		t.Errorf("Chat.ReplyTimeout = %v, want %v", cfg.Chat.ReplyTimeout, 45*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("CONFIDANT_TEST_KEY", "sk-from-env")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "./test.db"
openai:
  api_key: "${CONFIDANT_TEST_KEY}"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("OpenAI.APIKey = %q, want %q", cfg.OpenAI.APIKey, "sk-from-env")
	}
}

func TestLoad_MissingAPIKeyIsFatal(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "./test.db"
openai:
  api_key: ""
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for missing api_key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestLoad_MissingDatabasePathIsFatal(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
openai:
  api_key: "sk-test"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for missing database.path, got nil")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("error should mention database.path, got: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "./test.db"
openai:
  api_key: "sk-test"
chat:
  reply_timeout: "not-a-duration"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "reply_timeout") {
		t.Errorf("error should mention reply_timeout, got: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestSystemPrompt_InlinePrompt(t *testing.T) {
	cfg := &Config{Persona: PersonaConfig{Prompt: "You are Tom."}}

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt() error = %v", err)
	}
	if prompt != "You are Tom." {
		t.Errorf("prompt = %q, want %q", prompt, "You are Tom.")
	}
}

func TestSystemPrompt_FileWinsOverInline(t *testing.T) {
	tmpDir := t.TempDir()
	promptPath := filepath.Join(tmpDir, "persona.txt")
	if err := os.WriteFile(promptPath, []byte("You are from the file."), 0644); err != nil {
		t.Fatalf("failed to write prompt file: %v", err)
	}

	cfg := &Config{Persona: PersonaConfig{
		Prompt:     "inline",
		PromptFile: promptPath,
	}}

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt() error = %v", err)
	}
	if prompt != "You are from the file." {
		t.Errorf("prompt = %q, want %q", prompt, "You are from the file.")
	}
}

func TestSystemPrompt_MissingFile(t *testing.T) {
	cfg := &Config{Persona: PersonaConfig{PromptFile: "/nonexistent/persona.txt"}}

	_, err := cfg.SystemPrompt()
	if err == nil {
		t.Fatal("expected error for missing prompt file, got nil")
	}
}
