package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hello"))
	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent(strings.Repeat("x", 100001)))
	assert.Error(t, ValidateMessageContent("bad \xff utf8"))
}

func TestValidateMessageID(t *testing.T) {
	assert.NoError(t, ValidateMessageID(uuid.NewString()))
	assert.Error(t, ValidateMessageID("not-a-uuid"))
	assert.Error(t, ValidateMessageID(""))
}
