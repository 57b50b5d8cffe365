package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendAndLast(t *testing.T) {
	conv := NewConversation("be helpful")
	assert.Equal(t, "be helpful", conv.System)

	_, ok := conv.Last()
	assert.False(t, ok)

	conv.Append(NewUserMessage("first", nil, nil))
	conv.Append(NewUserMessage("second", nil, nil))

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, "second", last.Content)
	assert.Len(t, conv.Messages, 2)
}

func TestConversationRate(t *testing.T) {
	conv := NewConversation("")
	conv.Append(NewUserMessage("hi", nil, nil))
	conv.Append(NewAssistantMessage("hello", AssistantPayload{}, nil, nil))

	target := conv.Messages[1].UUID
	assert.True(t, conv.Rate(target, 1))
	require.NotNil(t, conv.Messages[1].Rating)
	assert.Equal(t, 1, *conv.Messages[1].Rating)

	// Re-rating overwrites in place
	assert.True(t, conv.Rate(target, -1))
	assert.Equal(t, -1, *conv.Messages[1].Rating)
}

func TestConversationRate_UnknownUUIDIsNoOp(t *testing.T) {
	conv := NewConversation("")
	conv.Append(NewUserMessage("hi", nil, nil))

	assert.False(t, conv.Rate("no-such-uuid", 1))
	assert.Nil(t, conv.Messages[0].Rating)
	assert.Len(t, conv.Messages, 1)
}
