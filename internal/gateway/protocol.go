// Package gateway binds client connections to sessions and dispatches
// inbound actions into the spin loop.
package gateway

import (
	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

// Inbound action names.
const (
	ActionAppend = "append"
	ActionRate   = "rate"
)

// InboundMessage is the envelope for all client-to-server messages.
type InboundMessage struct {
	Action string `json:"action"`

	// Append fields
	Collections []int64             `json:"collections,omitempty"`
	Message     *InboundUserMessage `json:"message,omitempty"`

	// Rate fields
	UUID   string `json:"uuid,omitempty"`
	Rating int    `json:"rating,omitempty"`
}

// InboundUserMessage is the user message payload of an append action.
type InboundUserMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// ConversationFrame carries the full conversation state after a transition.
// There is no incremental diffing; the client always receives the complete
// state.
type ConversationFrame struct {
	Conversation *model.Conversation `json:"conversation"`
}

// ErrorFrame reports a protocol, auth, or provider failure.
type ErrorFrame struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the payload of an error frame.
type ErrorBody struct {
	Exception string `json:"exception"`
}
