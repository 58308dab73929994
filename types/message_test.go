package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()
	msg := NewMessage(RoleTool, "output")
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "output", msg.Content)
	assert.False(t, msg.Timestamp.IsZero())

	assert.Equal(t, RoleSystem, NewSystemMessage("s").Role)
	assert.Equal(t, RoleUser, NewUserMessage("u").Role)
	assert.Equal(t, RoleAssistant, NewAssistantMessage("a").Role)
}

func TestMessage_With(t *testing.T) {
	t.Parallel()
	base := NewAssistantMessage("hello")
	tagged := base.WithNode("writer").WithMetadata(map[string]any{"attempt": 2})

	assert.Equal(t, "writer", tagged.Node)
	assert.Equal(t, 2, tagged.Metadata["attempt"])

	// Value receivers: the original message is untouched.
	assert.Empty(t, base.Node)
	assert.Nil(t, base.Metadata)
}
