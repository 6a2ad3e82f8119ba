package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewpayment/orbit-relay/internal/relayerr"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
	"github.com/drewpayment/orbit-relay/internal/transport"
)

// fakeConnectorTransport is a hand-rolled transport.ConnectorTransport
// fake, letting each test script which connectorIds fail on Transmit.
type fakeConnectorTransport struct {
	mu         sync.Mutex
	connectors map[string][]transport.ConnectorInfo
	failing    map[string]bool
	transmits  []string
}

func newFakeConnectorTransport() *fakeConnectorTransport {
	return &fakeConnectorTransport{
		connectors: make(map[string][]transport.ConnectorInfo),
		failing:    make(map[string]bool),
	}
}

func (f *fakeConnectorTransport) Transmit(_ context.Context, connectorId string, _ *relaytypes.RelayRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transmits = append(f.transmits, connectorId)
	if f.failing[connectorId] {
		return errors.New("connector gone")
	}
	return nil
}

func (f *fakeConnectorTransport) ConnectorsForTenant(tenantId string) []transport.ConnectorInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectors[tenantId]
}

func (f *fakeConnectorTransport) BinarySizeThreshold(tenantId string) int64 {
	connectors := f.ConnectorsForTenant(tenantId)
	if len(connectors) == 0 {
		return transport.DefaultBinarySizeThreshold
	}
	return connectors[0].BinarySizeThreshold
}

func TestRequestCoordinator_DeliverRequest_NoConnectors(t *testing.T) {
	ct := newFakeConnectorTransport()
	rc := NewRequestCoordinator(ct)

	err := rc.DeliverRequest(context.Background(), &relaytypes.RelayRequest{TenantId: "acme"})
	assert.ErrorIs(t, err, relayerr.ErrNoConnector)
}

func TestRequestCoordinator_DeliverRequest_Success(t *testing.T) {
	ct := newFakeConnectorTransport()
	ct.connectors["acme"] = []transport.ConnectorInfo{{ConnectorId: "c1", TenantId: "acme"}}
	rc := NewRequestCoordinator(ct)

	err := rc.DeliverRequest(context.Background(), &relaytypes.RelayRequest{TenantId: "acme"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ct.transmits)
}

func TestRequestCoordinator_RoundRobinsAcrossConnectors(t *testing.T) {
	ct := newFakeConnectorTransport()
	ct.connectors["acme"] = []transport.ConnectorInfo{{ConnectorId: "c1"}, {ConnectorId: "c2"}}
	rc := NewRequestCoordinator(ct)

	for i := 0; i < 4; i++ {
		require.NoError(t, rc.DeliverRequest(context.Background(), &relaytypes.RelayRequest{TenantId: "acme"}))
	}

	assert.Contains(t, ct.transmits, "c1")
	assert.Contains(t, ct.transmits, "c2")
}

func TestRequestCoordinator_RetriesOnceThenFails(t *testing.T) {
	ct := newFakeConnectorTransport()
	ct.connectors["acme"] = []transport.ConnectorInfo{{ConnectorId: "c1"}}
	ct.failing["c1"] = true
	rc := NewRequestCoordinator(ct)

	err := rc.DeliverRequest(context.Background(), &relaytypes.RelayRequest{TenantId: "acme"})
	assert.True(t, relayerr.IsTransportError(err))
	assert.Len(t, ct.transmits, 2)
}

func TestRequestCoordinator_BinarySizeThreshold_DefaultsWhenNoConnectors(t *testing.T) {
	ct := newFakeConnectorTransport()
	rc := NewRequestCoordinator(ct)

	assert.Equal(t, transport.DefaultBinarySizeThreshold, rc.BinarySizeThreshold("acme"))
}

func TestRequestCoordinator_BinarySizeThreshold_DelegatesToTransport(t *testing.T) {
	ct := newFakeConnectorTransport()
	ct.connectors["acme"] = []transport.ConnectorInfo{{ConnectorId: "c1", BinarySizeThreshold: 2048}}
	rc := NewRequestCoordinator(ct)

	assert.Equal(t, int64(2048), rc.BinarySizeThreshold("acme"))
}
