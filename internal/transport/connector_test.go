package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

type fakeHub struct {
	connectors map[string][]ConnectorInfo
	sendErr    error
	sent       []string
}

func (h *fakeHub) Send(_ context.Context, connectorId string, _ *relaytypes.RelayRequest) error {
	h.sent = append(h.sent, connectorId)
	return h.sendErr
}

func (h *fakeHub) Configure(_ context.Context, _ string, _ relaytypes.TenantConfig) error {
	return nil
}

func (h *fakeHub) ConnectorsForTenant(tenantId string) []ConnectorInfo {
	return h.connectors[tenantId]
}

func TestHubConnectorTransport_Transmit(t *testing.T) {
	hub := &fakeHub{}
	transport := NewHubConnectorTransport(hub)

	err := transport.Transmit(context.Background(), "c1", &relaytypes.RelayRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, hub.sent)
}

func TestHubConnectorTransport_TransmitWrapsError(t *testing.T) {
	hub := &fakeHub{sendErr: errors.New("boom")}
	transport := NewHubConnectorTransport(hub)

	err := transport.Transmit(context.Background(), "c1", &relaytypes.RelayRequest{})
	assert.Error(t, err)
}

func TestHubConnectorTransport_BinarySizeThreshold_NoConnectors(t *testing.T) {
	hub := &fakeHub{connectors: map[string][]ConnectorInfo{}}
	transport := NewHubConnectorTransport(hub)

	assert.Equal(t, DefaultBinarySizeThreshold, transport.BinarySizeThreshold("acme"))
}

func TestHubConnectorTransport_BinarySizeThreshold_TakesMinimum(t *testing.T) {
	hub := &fakeHub{connectors: map[string][]ConnectorInfo{
		"acme": {
			{ConnectorId: "c1", BinarySizeThreshold: 4096},
			{ConnectorId: "c2", BinarySizeThreshold: 1024},
			{ConnectorId: "c3", BinarySizeThreshold: 2048},
		},
	}}
	transport := NewHubConnectorTransport(hub)

	assert.Equal(t, int64(1024), transport.BinarySizeThreshold("acme"))
}

func TestHubConnectorTransport_ConnectorsForTenant(t *testing.T) {
	hub := &fakeHub{connectors: map[string][]ConnectorInfo{
		"acme": {{ConnectorId: "c1"}},
	}}
	transport := NewHubConnectorTransport(hub)

	assert.Len(t, transport.ConnectorsForTenant("acme"), 1)
	assert.Empty(t, transport.ConnectorsForTenant("globex"))
}
