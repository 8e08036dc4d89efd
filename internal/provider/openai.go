// ABOUTME: OpenAI chat-completion implementation of the Provider interface
// ABOUTME: Prepends the persona system prompt and maps history turns to chat messages

package provider

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults applied when the config leaves the corresponding field zero.
const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// Options configures an OpenAIProvider.
type Options struct {
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	BaseURL      string // optional, for OpenAI-compatible endpoints
	SystemPrompt string // persona instructions, prepended once per call
}

// OpenAIProvider talks to the OpenAI chat-completion API.
type OpenAIProvider struct {
	client *openai.Client
	opts   Options
	logger *slog.Logger
}

// NewOpenAIProvider creates a provider from the given options.
// The API key must be non-empty; validating it at startup is the caller's job.
func NewOpenAIProvider(opts Options) *OpenAIProvider {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		logger: slog.Default().With("component", "provider"),
	}
}

// Respond sends the conversation to the chat-completion endpoint and returns
// the model's reply. Returns ErrEmptyReply when the model answered with no
// content.
func (p *OpenAIProvider) Respond(ctx context.Context, newText string, history []Turn) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    buildMessages(p.opts.SystemPrompt, newText, history),
		Temperature: float32(p.opts.Temperature),
		MaxTokens:   p.opts.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}

	p.logger.Debug("reply received",
		"model", p.opts.Model,
		"history_turns", len(history),
		"reply_len", len(resp.Choices[0].Message.Content))

	return resp.Choices[0].Message.Content, nil
}

// buildMessages assembles the chat-completion message list: system prompt
// first (when set), prior turns in order, the new user text last.
func buildMessages(systemPrompt, newText string, history []Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)

	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: newText,
	})

	return msgs
}

// Ensure OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
