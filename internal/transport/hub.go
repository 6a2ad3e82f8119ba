// Package transport implements C3 (ConnectorTransport) and C4
// (ServerTransport) against two abstract external collaborators: a
// duplex Hub (server pushes invocations to a specific connector) and a
// pub/sub Broker (connectors publish responses/acks, origin servers
// consume their own queues). Per spec §1 and §4.6, only these contracts
// matter to the core — concrete wiring lives in the grpchub and
// kafkabroker sub-packages.
package transport

import (
	"context"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// ConnectorInfo describes a connector currently subscribed through the
// Hub, as seen from the server side.
type ConnectorInfo struct {
	ConnectorId         string
	TenantId            string
	BinarySizeThreshold int64
}

// Hub is the server-side view of the connector↔server duplex channel.
// Implementations push invocations to a specific, already-connected
// connector; they do not queue for disconnected ones.
type Hub interface {
	// Send pushes a RequestTarget invocation to connectorId.
	Send(ctx context.Context, connectorId string, req *relaytypes.RelayRequest) error
	// Configure pushes a Configure invocation to connectorId.
	Configure(ctx context.Context, connectorId string, cfg relaytypes.TenantConfig) error
	// ConnectorsForTenant lists connectors currently subscribed for tenantId.
	ConnectorsForTenant(tenantId string) []ConnectorInfo
}

// InvocationKind discriminates the two server-initiated invocations a
// connector receives over its Hub session.
type InvocationKind int

const (
	// InvocationRequestTarget carries a RelayRequest to hand to the local target.
	InvocationRequestTarget InvocationKind = iota
	// InvocationConfigure carries an updated TenantConfig.
	InvocationConfigure
)

// Invocation is a single server→connector message delivered over a
// HubSession.
type Invocation struct {
	Kind      InvocationKind
	Request   *relaytypes.RelayRequest
	Configure *relaytypes.TenantConfig
}

// HubSession is the connector-side view of a single Hub connection.
// Connect blocks until the session is established (or fails) and returns
// channels the connector-side state machine (C9) selects on.
type HubSession interface {
	Connect(ctx context.Context, tenantId string, binarySizeThreshold int64) (Session, error)
}

// Session is an established connector↔server duplex channel.
type Session interface {
	// ConnectionId is the transport-assigned identifier for this session.
	ConnectionId() string
	// Invocations yields server-pushed invocations until the session closes.
	Invocations() <-chan Invocation
	// Closed yields exactly once when the session ends, carrying nil for a
	// graceful close or the error that caused the disconnect.
	Closed() <-chan error
	// Close tears down the session from the connector side.
	Close() error
	// SendKeepAlive pushes a single keep-alive message to the server, at
	// whatever cadence the caller's tenant policy dictates.
	SendKeepAlive(ctx context.Context) error
}
