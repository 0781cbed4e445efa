package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_MarshalsPayload(t *testing.T) {
	env, err := NewEnvelope("welcome", map[string]any{"sessionId": 42})
	require.NoError(t, err)
	assert.Equal(t, "welcome", env.Op)

	var got map[string]any
	require.NoError(t, env.DecodePayload(&got))
	assert.EqualValues(t, 42, got["sessionId"])
}

func TestEnvelope_DecodePayload_EmptyPayloadIsNoop(t *testing.T) {
	env := Envelope{Op: "ping"}
	var got map[string]any
	assert.NoError(t, env.DecodePayload(&got))
	assert.Nil(t, got)
}
