package connectorside

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "connected", EventConnected.String())
	assert.Equal(t, "reconnecting", EventReconnecting.String())
	assert.Equal(t, "reconnected", EventReconnected.String())
	assert.Equal(t, "disconnected", EventDisconnected.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
