package relaytypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelayRequest_Outsourced(t *testing.T) {
	inline := &RelayRequest{BodyContent: []byte("hello"), BodySize: 5}
	assert.False(t, inline.Outsourced())

	empty := &RelayRequest{BodyContent: nil, BodySize: 0}
	assert.False(t, empty.Outsourced())

	staged := &RelayRequest{BodyContent: nil, BodySize: 1 << 20}
	assert.True(t, staged.Outsourced())
}

func TestTargetResponse_Outsourced(t *testing.T) {
	staged := &TargetResponse{BodyContent: nil, BodySize: 42}
	assert.True(t, staged.Outsourced())

	inline := &TargetResponse{BodyContent: []byte("x"), BodySize: 1}
	assert.False(t, inline.Outsourced())
}

func TestHeaders_GetSetAdd(t *testing.T) {
	h := Headers{}
	assert.Equal(t, "", h.Get("X-Missing"))

	h.Set("X-Tenant", "acme")
	assert.Equal(t, "acme", h.Get("X-Tenant"))

	h.Add("X-Trace", "a")
	h.Add("X-Trace", "b")
	assert.Equal(t, []string{"a", "b"}, h["X-Trace"])
	assert.Equal(t, "a", h.Get("X-Trace"))

	h.Set("X-Trace", "reset")
	assert.Equal(t, []string{"reset"}, h["X-Trace"])
}

func TestHeaders_GetOnNil(t *testing.T) {
	var h Headers
	assert.Equal(t, "", h.Get("anything"))
}

func TestTenantConfig_Fields(t *testing.T) {
	cfg := TenantConfig{
		Name:                  "acme",
		KeepAliveInterval:     30 * time.Second,
		ReconnectMinimumDelay: 500 * time.Millisecond,
		ReconnectMaximumDelay: 30 * time.Second,
		EnableTracing:         true,
		RequestExpiration:     10 * time.Second,
	}
	assert.Equal(t, "acme", cfg.Name)
	assert.True(t, cfg.EnableTracing)
}
