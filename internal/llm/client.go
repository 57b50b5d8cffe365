// Package llm abstracts one round-trip to an external text-generation
// provider.
package llm

import (
	"context"
	"errors"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

// ErrOverloaded wraps provider rate-limit and overload failures so the
// gateway can surface a retry-later message. Authentication failures are
// caught at construction time instead; a client with a bad credential is
// never built.
var ErrOverloaded = errors.New("llm provider overloaded")

// ChatMessage is one flattened history entry sent to a provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single completion round-trip.
type CompletionRequest struct {
	System     string
	Messages   []ChatMessage
	Tools      []model.ToolDefinition
	ToolChoice *model.ToolChoice
	MaxTokens  int
}

// Completion is the parsed result of one provider call. At most one of Text
// or ToolCall is populated: a model turn either emits prose or invokes one
// tool, never both.
type Completion struct {
	Text         string
	ToolCall     *model.ToolCall
	StopReason   string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends one completion request. A failed call returns an
	// error without any partial result.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// CountTokens estimates the billed input tokens for the request plus
	// an optional not-yet-appended user text, without committing to a
	// full call.
	CountTokens(req *CompletionRequest, pending string) int

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}

// estimateTokens is a rough chars/4 estimate, enough for the usage-bar
// display the count feeds.
func estimateTokens(req *CompletionRequest, pending string) int {
	chars := len(req.System) + len(pending)
	for _, m := range req.Messages {
		chars += len(m.Role) + len(m.Content)
	}
	return chars / 4
}
