// ABOUTME: ResponseProvider boundary for remote text completion
// ABOUTME: Defines the Provider interface and neutral conversation turn types

package provider

import (
	"context"
	"errors"
)

// ErrEmptyReply is returned when the remote model produced a response with
// no content. Callers decide whether to treat this as a failure.
var ErrEmptyReply = errors.New("model returned empty reply")

// Role tags a conversation turn as user- or assistant-authored.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior utterance passed as conversation context.
type Turn struct {
	Role    Role
	Content string
}

// Provider produces a single reply for a new user message given the prior
// conversation. Implementations perform one remote call with no retry
// policy of their own; cancellation and deadlines arrive through ctx.
type Provider interface {
	Respond(ctx context.Context, newText string, history []Turn) (string, error)
}
