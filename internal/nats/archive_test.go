package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

func TestMessageSubject(t *testing.T) {
	assert.Equal(t, "conv.alice.42.user", MessageSubject("alice", 42, model.RoleUser))
	assert.Equal(t, "conv.alice.42.assistant", MessageSubject("alice", 42, model.RoleAssistant))
}

func TestMessageSubject_SanitizesOwner(t *testing.T) {
	// Owner identities are opaque strings and may contain characters that
	// would break subject token boundaries.
	assert.Equal(t, "conv.a_b_c__.7.tool", MessageSubject("a.b c*>", 7, model.RoleTool))
}
