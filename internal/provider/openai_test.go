// ABOUTME: Tests for OpenAI provider message assembly
// ABOUTME: Verifies system prompt placement, history order, and role mapping

package provider

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages_SystemPromptFirst(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
	}

	msgs := buildMessages("you are a helpful persona", "how are you?", history)

	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "you are a helpful persona", msgs[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "hi there", msgs[2].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[3].Role)
	assert.Equal(t, "how are you?", msgs[3].Content)
}

func TestBuildMessages_NoSystemPrompt(t *testing.T) {
	msgs := buildMessages("", "hello", nil)

	require.Len(t, msgs, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestBuildMessages_NewTextAlwaysLast(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Content: "earlier reply"},
	}

	msgs := buildMessages("persona", "latest question", history)

	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, openai.ChatMessageRoleUser, last.Role)
	assert.Equal(t, "latest question", last.Content)
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(Options{APIKey: "sk-test"})

	assert.Equal(t, DefaultModel, p.opts.Model)
	assert.Equal(t, DefaultTemperature, p.opts.Temperature)
	assert.Equal(t, DefaultMaxTokens, p.opts.MaxTokens)
}
