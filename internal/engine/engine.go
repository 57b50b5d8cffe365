// Package engine implements the conversation orchestration core: the turn
// engine deciding the single next state transition, and the spin loop that
// drives it to a resting point.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-gateway/internal/llm"
	"github.com/capitalize-ai/assistant-gateway/internal/model"
	"github.com/capitalize-ai/assistant-gateway/internal/tool"
	"github.com/capitalize-ai/assistant-gateway/pkg/logger"
	"github.com/capitalize-ai/assistant-gateway/pkg/metrics"
)

// EmptyCompletionPlaceholder is the visible content of an assistant message
// whose completion carried neither text nor a tool call. It marks a
// fully-parsed-but-empty provider response, not an error.
const EmptyCompletionPlaceholder = "(empty response, tool call)"

// Engine owns one turn decision at a time over a conversation. It holds no
// per-conversation state and is safe for concurrent use across sessions.
type Engine struct {
	llm       llm.Client
	tools     *tool.Registry
	maxTokens int
	log       *logger.Logger
}

// New creates a turn engine over the given provider and tool registry.
// maxTokens bounds each completion call.
func New(client llm.Client, tools *tool.Registry, maxTokens int, log *logger.Logger) *Engine {
	return &Engine{
		llm:       client,
		tools:     tools,
		maxTokens: maxTokens,
		log:       log,
	}
}

// Step applies the single next state transition to the conversation and
// reports whether anything changed. The decision is a function of the last
// message only:
//
//   - empty history: unchanged
//   - tool output addressed to the user: unchanged, waiting for the human
//   - assistant turn with a pending tool call: execute it
//   - assistant turn without one: unchanged, the turn is finished
//   - user message or tool output addressed to the assistant: call the provider
//
// Business outcomes (unknown tool, empty completion) are encoded into the
// appended message; only provider infrastructure failures return an error,
// and a failed provider call appends nothing.
func (e *Engine) Step(ctx context.Context, conv *model.Conversation, ec tool.ExecContext) (bool, error) {
	last, ok := conv.Last()
	if !ok {
		return false, nil
	}

	switch last.Role {
	case model.RoleTool:
		if last.Tool != nil && last.Tool.ForWhom == model.AudienceUser {
			return false, nil
		}
		return e.completeTurn(ctx, conv, last)
	case model.RoleAssistant:
		call := last.PendingToolCall()
		if call == nil {
			return false, nil
		}
		return e.executeTool(ctx, conv, call, ec)
	case model.RoleUser:
		return e.completeTurn(ctx, conv, last)
	}
	return false, nil
}

// executeTool resolves a pending tool call into a tool message. Execution
// never fails: the registry captures every fault into the exception variant.
func (e *Engine) executeTool(ctx context.Context, conv *model.Conversation, call *model.ToolCall, ec tool.ExecContext) (bool, error) {
	outcome := e.tools.Execute(ctx, call.Name, ec, call.Input)

	// An unknown name has no declared visibility; route the error back to
	// the model so it can correct itself.
	forWhom := model.AudienceAssistant
	if t, ok := e.tools.Lookup(call.Name); ok {
		forWhom = t.ForWhom
	}

	status := "success"
	if outcome.Failed() {
		status = "exception"
	}
	metrics.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
	e.log.Debug("tool executed",
		zap.String("tool", call.Name),
		zap.String("status", status),
	)

	conv.Append(model.NewToolMessage(call.Name, call.Input, forWhom, outcome))
	return true, nil
}

// completeTurn asks the provider for one completion and appends the
// resulting assistant message. The trigger's tools/tool_choice snapshot is
// forwarded and inherited so a follow-up turn can keep recursing through
// tool use.
func (e *Engine) completeTurn(ctx context.Context, conv *model.Conversation, trigger model.Message) (bool, error) {
	req := &llm.CompletionRequest{
		System:     conv.System,
		Messages:   FlattenHistory(conv),
		Tools:      trigger.Tools,
		ToolChoice: trigger.ToolChoice,
		MaxTokens:  e.maxTokens,
	}

	completion, err := e.llm.Complete(ctx, req)
	if err != nil {
		return false, err
	}

	content := completion.Text
	if content == "" && completion.ToolCall == nil {
		content = EmptyCompletionPlaceholder
	}

	metrics.RecordCompletion(completion.Model, completion.InputTokens, completion.OutputTokens)
	e.log.Debug("completion received",
		zap.String("model", completion.Model),
		zap.String("stop_reason", completion.StopReason),
		zap.Bool("tool_call", completion.ToolCall != nil),
	)

	conv.Append(model.NewAssistantMessage(content, model.AssistantPayload{
		StopReason: completion.StopReason,
		Model:      completion.Model,
		ToolCall:   completion.ToolCall,
		Usage:      completion.InputTokens + completion.OutputTokens,
	}, trigger.Tools, trigger.ToolChoice))
	return true, nil
}

// FlattenHistory converts a conversation to the {role, content} pairs a
// provider accepts. Tool output addressed to the user never reaches the
// model; tool output addressed to the assistant is fed back under the user
// role since providers only accept user/assistant turns.
func FlattenHistory(conv *model.Conversation) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		role := string(m.Role)
		if m.Role == model.RoleTool {
			if m.Tool != nil && m.Tool.ForWhom == model.AudienceUser {
				continue
			}
			role = string(model.RoleUser)
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}
