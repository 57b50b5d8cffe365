package llm

import (
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(ProviderAnthropic, "")
	assert.Error(t, err)

	_, err = NewClient(ProviderOpenAI, "")
	assert.Error(t, err)
}

func TestNewClient_ProviderSelection(t *testing.T) {
	c, err := NewClient(ProviderAnthropic, "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	c, err = NewClient(ProviderOpenAI, "key")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	// Unknown provider names fall back to the default
	c, err = NewClient(Provider("nonsense"), "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func TestEstimateTokens(t *testing.T) {
	req := &CompletionRequest{
		System: "sys!",
		Messages: []ChatMessage{
			{Role: "user", Content: "abcd"},
		},
	}

	// (4 system + 4 role + 4 content) / 4
	assert.Equal(t, 3, estimateTokens(req, ""))
	assert.Equal(t, 4, estimateTokens(req, "1234"))
	assert.Equal(t, 0, estimateTokens(&CompletionRequest{}, ""))
}

func TestOpenAIToolChoice(t *testing.T) {
	assert.Equal(t, "auto", openaiToolChoice(model.ToolChoice{Type: model.ToolChoiceAuto}))
	assert.Equal(t, "required", openaiToolChoice(model.ToolChoice{Type: model.ToolChoiceAny}))

	forced := openaiToolChoice(model.ToolChoice{Type: model.ToolChoiceTool, Name: "search"})
	choice, ok := forced.(openai.ToolChoice)
	require.True(t, ok)
	assert.Equal(t, "search", choice.Function.Name)
}

func TestClassifyOpenAIError(t *testing.T) {
	overloaded := classifyOpenAIError(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests})
	assert.ErrorIs(t, overloaded, ErrOverloaded)

	serverSide := classifyOpenAIError(&openai.APIError{HTTPStatusCode: http.StatusBadGateway})
	assert.ErrorIs(t, serverSide, ErrOverloaded)

	clientSide := classifyOpenAIError(&openai.APIError{HTTPStatusCode: http.StatusBadRequest})
	assert.NotErrorIs(t, clientSide, ErrOverloaded)
}
