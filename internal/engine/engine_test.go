package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-gateway/internal/llm"
	"github.com/capitalize-ai/assistant-gateway/internal/model"
	"github.com/capitalize-ai/assistant-gateway/internal/tool"
	"github.com/capitalize-ai/assistant-gateway/pkg/logger"
)

// scriptedClient returns queued completions in order, recording every request.
type scriptedClient struct {
	completions []*llm.Completion
	err         error
	requests    []*llm.CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.Completion, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.completions) == 0 {
		return &llm.Completion{Text: "default", StopReason: "end_turn", Model: "scripted"}, nil
	}
	next := c.completions[0]
	c.completions = c.completions[1:]
	return next, nil
}

func (c *scriptedClient) CountTokens(*llm.CompletionRequest, string) int { return 0 }

func (c *scriptedClient) Name() string { return "scripted" }

func textCompletion(text string) *llm.Completion {
	return &llm.Completion{Text: text, StopReason: "end_turn", Model: "scripted", InputTokens: 10, OutputTokens: 5}
}

func toolCompletion(name string, input map[string]any) *llm.Completion {
	return &llm.Completion{
		ToolCall:   &model.ToolCall{ID: "call_1", Name: name, Input: input},
		StopReason: "tool_use",
		Model:      "scripted",
	}
}

func testRegistry(tools ...tool.Tool) *tool.Registry {
	return tool.NewRegistry(time.Second, tools...)
}

func staticTool(name string, forWhom model.Audience, result string) tool.Tool {
	return tool.New(model.ToolDefinition{Name: name}, forWhom,
		func(context.Context, tool.ExecContext, map[string]any) (any, error) {
			return result, nil
		})
}

func newTestEngine(t *testing.T, client llm.Client, registry *tool.Registry) *Engine {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return New(client, registry, 1024, log)
}

func userConv(content string) *model.Conversation {
	conv := model.NewConversation("be helpful")
	conv.Append(model.NewUserMessage(content, nil, nil))
	return conv
}

func TestStep_EmptyConversationIsAtRest(t *testing.T) {
	eng := newTestEngine(t, &scriptedClient{}, testRegistry())

	changed, err := eng.Step(context.Background(), model.NewConversation(""), tool.ExecContext{})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStep_UserMessageTriggersCompletion(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{textCompletion("4")}}
	eng := newTestEngine(t, client, testRegistry())
	conv := userConv("What is 2+2?")

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, conv.Messages, 2)
	last := conv.Messages[1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "4", last.Content)
	require.NotNil(t, last.Assistant)
	assert.Equal(t, "end_turn", last.Assistant.StopReason)
	assert.Equal(t, 15, last.Assistant.Usage)
}

func TestStep_AssistantProseIsAtRest(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{textCompletion("4")}}
	eng := newTestEngine(t, client, testRegistry())
	conv := userConv("What is 2+2?")

	_, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, conv.Messages, 2)
	assert.Len(t, client.requests, 1)
}

func TestStep_PendingToolCallExecutes(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		toolCompletion("lookup", map[string]any{"key": "x"}),
	}}
	eng := newTestEngine(t, client, testRegistry(staticTool("lookup", model.AudienceAssistant, "value of x")))
	conv := userConv("look up x")

	_, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, conv.Messages, 3)
	last := conv.Messages[2]
	assert.Equal(t, model.RoleTool, last.Role)
	assert.Equal(t, "value of x", last.Content)
	require.NotNil(t, last.Tool)
	assert.Equal(t, "lookup", last.Tool.Name)
	assert.Equal(t, model.AudienceAssistant, last.Tool.ForWhom)
}

func TestStep_ToolOutputForAssistantTriggersFollowUp(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		toolCompletion("lookup", nil),
		textCompletion("x is 42"),
	}}
	eng := newTestEngine(t, client, testRegistry(staticTool("lookup", model.AudienceAssistant, "42")))
	conv := userConv("look up x")

	for i := 0; i < 3; i++ {
		changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
		require.NoError(t, err)
		assert.True(t, changed)
	}

	require.Len(t, conv.Messages, 4)
	assert.Equal(t, model.RoleAssistant, conv.Messages[3].Role)
	assert.Equal(t, "x is 42", conv.Messages[3].Content)
}

func TestStep_ToolOutputForUserIsAtRest(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		toolCompletion("diagnostic", nil),
	}}
	eng := newTestEngine(t, client, testRegistry(staticTool("diagnostic", model.AudienceUser, "echo")))
	conv := userConv("run the diagnostic")

	_, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	_, err = eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, conv.Messages, 3)
	assert.Len(t, client.requests, 1)
}

func TestStep_UnknownToolNameBecomesException(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		toolCompletion("no_such_tool", nil),
	}}
	eng := newTestEngine(t, client, testRegistry())
	conv := userConv("call something")

	_, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	assert.True(t, changed)

	last := conv.Messages[2]
	require.NotNil(t, last.Tool)
	assert.Equal(t, "Function name is not valid", last.Tool.Outcome.Exception)
	// Routed back to the model so it can correct itself
	assert.Equal(t, model.AudienceAssistant, last.Tool.ForWhom)
}

func TestStep_EmptyCompletionGetsPlaceholder(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		{StopReason: "end_turn", Model: "scripted"},
	}}
	eng := newTestEngine(t, client, testRegistry())
	conv := userConv("hello")

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, EmptyCompletionPlaceholder, conv.Messages[1].Content)
}

func TestStep_ProviderErrorAppendsNothing(t *testing.T) {
	client := &scriptedClient{err: errors.New("provider down")}
	eng := newTestEngine(t, client, testRegistry())
	conv := userConv("hello")

	changed, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.Error(t, err)
	assert.False(t, changed)
	assert.Len(t, conv.Messages, 1)
}

func TestStep_ForwardsToolSnapshotFromTrigger(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{textCompletion("ok")}}
	eng := newTestEngine(t, client, testRegistry())

	tools := []model.ToolDefinition{{Name: "search"}}
	choice := &model.ToolChoice{Type: model.ToolChoiceAuto}
	conv := model.NewConversation("sys")
	conv.Append(model.NewUserMessage("hi", tools, choice))

	_, err := eng.Step(context.Background(), conv, tool.ExecContext{})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "sys", req.System)
	assert.Equal(t, tools, req.Tools)
	assert.Equal(t, choice, req.ToolChoice)
	assert.Equal(t, 1024, req.MaxTokens)

	// The assistant message inherits the snapshot for the next turn
	assert.Equal(t, tools, conv.Messages[1].Tools)
	assert.Equal(t, choice, conv.Messages[1].ToolChoice)
}

func TestFlattenHistory(t *testing.T) {
	conv := model.NewConversation("sys")
	conv.Append(model.NewUserMessage("question", nil, nil))
	conv.Append(model.NewAssistantMessage("", model.AssistantPayload{
		ToolCall: &model.ToolCall{ID: "c1", Name: "lookup"},
	}, nil, nil))
	conv.Append(model.NewToolMessage("lookup", nil, model.AudienceAssistant, model.SuccessOutcome("data")))
	conv.Append(model.NewToolMessage("diagnostic", nil, model.AudienceUser, model.SuccessOutcome("visible only to human")))
	conv.Append(model.NewAssistantMessage("answer", model.AssistantPayload{}, nil, nil))

	flat := FlattenHistory(conv)
	require.Len(t, flat, 4)
	assert.Equal(t, llm.ChatMessage{Role: "user", Content: "question"}, flat[0])
	assert.Equal(t, "assistant", flat[1].Role)
	// Assistant-facing tool output is fed back under the user role
	assert.Equal(t, llm.ChatMessage{Role: "user", Content: "data"}, flat[2])
	assert.Equal(t, llm.ChatMessage{Role: "assistant", Content: "answer"}, flat[3])

	for _, m := range flat {
		assert.NotEqual(t, "visible only to human", m.Content)
	}
}
