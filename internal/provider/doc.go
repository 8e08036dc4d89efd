// Package provider is the boundary to the remote language model.
//
// Provider is deliberately narrow: one call, one reply string, one error.
// The send flow owns retry/fallback policy; implementations here own only
// the wire protocol. OpenAIProvider is the production implementation,
// backed by the OpenAI chat-completion API via sashabaranov/go-openai.
//
// The persona system prompt is opaque configuration: it is prepended once
// per request and never inspected.
package provider
