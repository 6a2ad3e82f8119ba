package grpchub

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

func newTestServer() *Server {
	return NewServer(logrus.NewEntry(logrus.New()), nil)
}

func newTestConnectorStream(id, tenantId string) *connectorStream {
	return &connectorStream{
		id:                  id,
		tenantId:            tenantId,
		binarySizeThreshold: 1 << 20,
		send:                make(chan *envelope, 8),
		done:                make(chan struct{}),
	}
}

func TestServer_RegisterAndConnectorsForTenant(t *testing.T) {
	s := newTestServer()
	cs := newTestConnectorStream("c1", "acme")

	s.register(cs)

	connectors := s.ConnectorsForTenant("acme")
	require.Len(t, connectors, 1)
	assert.Equal(t, "c1", connectors[0].ConnectorId)
	assert.Equal(t, int64(1<<20), connectors[0].BinarySizeThreshold)
}

func TestServer_UnregisterRemovesConnector(t *testing.T) {
	s := newTestServer()
	cs := newTestConnectorStream("c1", "acme")
	s.register(cs)

	s.unregister(cs)

	assert.Empty(t, s.ConnectorsForTenant("acme"))
}

func TestServer_Send_PushesToConnectorQueue(t *testing.T) {
	s := newTestServer()
	cs := newTestConnectorStream("c1", "acme")
	s.register(cs)

	err := s.Send(context.Background(), "c1", &relaytypes.RelayRequest{RequestId: "req-1"})
	require.NoError(t, err)

	msg := <-cs.send
	assert.Equal(t, typeRequest, msg.Type)
	assert.Equal(t, "req-1", msg.Request.RequestId)
}

func TestServer_Send_UnknownConnectorErrors(t *testing.T) {
	s := newTestServer()
	err := s.Send(context.Background(), "ghost", &relaytypes.RelayRequest{})
	assert.Error(t, err)
}

func TestServer_Configure_PushesToConnectorQueue(t *testing.T) {
	s := newTestServer()
	cs := newTestConnectorStream("c1", "acme")
	s.register(cs)

	err := s.Configure(context.Background(), "c1", relaytypes.TenantConfig{Name: "acme"})
	require.NoError(t, err)

	msg := <-cs.send
	assert.Equal(t, typeConfigure, msg.Type)
	assert.Equal(t, "acme", msg.Configure.Name)
}

func TestServer_Push_FailsOnceConnectorDone(t *testing.T) {
	s := newTestServer()
	cs := newTestConnectorStream("c1", "acme")
	s.register(cs)
	close(cs.done)

	err := s.push("c1", &envelope{Type: typeRequest})
	assert.Error(t, err)
}

func TestServer_MultipleConnectorsSameTenant(t *testing.T) {
	s := newTestServer()
	s.register(newTestConnectorStream("c1", "acme"))
	s.register(newTestConnectorStream("c2", "acme"))

	assert.Len(t, s.ConnectorsForTenant("acme"), 2)
}
