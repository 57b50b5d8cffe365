// Package model defines the conversation data model for the assistant gateway.
package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role discriminates the three message variants.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Audience controls who may see the raw output of a tool invocation.
type Audience string

const (
	AudienceUser      Audience = "user"
	AudienceAssistant Audience = "assistant"
)

// ToolChoiceType is the policy for whether the model must pick a tool.
type ToolChoiceType string

const (
	// ToolChoiceAuto lets the model decide between prose and a tool call.
	ToolChoiceAuto ToolChoiceType = "auto"
	// ToolChoiceAny forces the model to call some tool.
	ToolChoiceAny ToolChoiceType = "any"
	// ToolChoiceTool forces the model to call the named tool.
	ToolChoiceTool ToolChoiceType = "tool"
)

// ToolChoice describes how the model should select a tool for one call.
type ToolChoice struct {
	Type ToolChoiceType `json:"type"`
	Name string         `json:"name,omitempty"`
}

// ToolDefinition is the machine-readable schema offered to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a pending tool invocation requested by an assistant message.
// All three fields are populated together; a Message either carries a
// complete call or none at all.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolOutcome is the result/exception discriminated payload of a tool
// invocation. Exactly one of Result or Exception is populated; use
// SuccessOutcome and FailureOutcome rather than constructing it directly.
type ToolOutcome struct {
	Result    any    `json:"result,omitempty"`
	Exception string `json:"exception,omitempty"`
}

// SuccessOutcome wraps a tool result value.
func SuccessOutcome(result any) ToolOutcome {
	return ToolOutcome{Result: result}
}

// FailureOutcome wraps a tool failure message.
func FailureOutcome(exception string) ToolOutcome {
	return ToolOutcome{Exception: exception}
}

// Failed reports whether the outcome is the exception variant.
func (o ToolOutcome) Failed() bool {
	return o.Exception != ""
}

// AssistantPayload carries the assistant-variant fields of a Message.
type AssistantPayload struct {
	StopReason string    `json:"stop_reason,omitempty"`
	Model      string    `json:"model,omitempty"`
	ToolCall   *ToolCall `json:"tool_call,omitempty"`
	// Usage is the total tokens billed for this turn (input + output).
	Usage int `json:"usage,omitempty"`
}

// ToolPayload carries the tool-variant fields of a Message.
type ToolPayload struct {
	Name      string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	ForWhom   Audience       `json:"for_whom"`
	Outcome   ToolOutcome    `json:"result_dict"`
}

// Message is one entry in a conversation transcript. Role discriminates the
// variant; Assistant and Tool hold the variant-specific payloads and at most
// one of them is non-nil.
type Message struct {
	UUID    string `json:"message_uuid"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Rating  *int   `json:"rating,omitempty"`

	// Tools and ToolChoice snapshot the schema and policy offered to the
	// model when this message was produced, so a follow-up turn can keep
	// recursing through tool use.
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice *ToolChoice      `json:"tool_choice,omitempty"`

	Assistant *AssistantPayload `json:"assistant,omitempty"`
	Tool      *ToolPayload      `json:"tool,omitempty"`
}

// NewUserMessage constructs a user message offering the given tool schema.
func NewUserMessage(content string, tools []ToolDefinition, choice *ToolChoice) Message {
	return Message{
		UUID:       uuid.NewString(),
		Role:       RoleUser,
		Content:    content,
		Tools:      tools,
		ToolChoice: choice,
	}
}

// NewAssistantMessage constructs an assistant message. The tools/tool_choice
// snapshot is inherited from the message that triggered the completion.
func NewAssistantMessage(content string, payload AssistantPayload, tools []ToolDefinition, choice *ToolChoice) Message {
	return Message{
		UUID:       uuid.NewString(),
		Role:       RoleAssistant,
		Content:    content,
		Tools:      tools,
		ToolChoice: choice,
		Assistant:  &payload,
	}
}

// NewToolMessage constructs a tool message from an execution outcome.
func NewToolMessage(name string, arguments map[string]any, forWhom Audience, outcome ToolOutcome) Message {
	return Message{
		UUID:    uuid.NewString(),
		Role:    RoleTool,
		Content: outcomeContent(outcome),
		Tool: &ToolPayload{
			Name:      name,
			Arguments: arguments,
			ForWhom:   forWhom,
			Outcome:   outcome,
		},
	}
}

// PendingToolCall returns the unresolved tool call carried by an assistant
// message, or nil when the message is not an assistant turn or the turn
// finished with prose.
func (m Message) PendingToolCall() *ToolCall {
	if m.Role != RoleAssistant || m.Assistant == nil {
		return nil
	}
	return m.Assistant.ToolCall
}

// outcomeContent renders a tool outcome as the message body fed back into
// the transcript.
func outcomeContent(outcome ToolOutcome) string {
	if outcome.Failed() {
		return outcome.Exception
	}
	if s, ok := outcome.Result.(string); ok {
		return s
	}
	data, err := json.Marshal(outcome.Result)
	if err != nil {
		return ""
	}
	return string(data)
}
