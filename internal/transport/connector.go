package transport

import (
	"context"
	"fmt"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// DefaultBinarySizeThreshold is reported when a tenant has no connectors
// subscribed yet (and so no advertised limit to take the minimum of).
const DefaultBinarySizeThreshold int64 = 1 << 20 // 1 MiB

// ConnectorTransport is C3: a thin server-side façade over the Hub that
// the request coordinator (C5) uses to push a request to one already
// -selected connector, and to learn the binary size threshold currently in
// effect for a tenant.
type ConnectorTransport interface {
	// Transmit pushes req to the given connector's hub session.
	Transmit(ctx context.Context, connectorId string, req *relaytypes.RelayRequest) error
	// ConnectorsForTenant lists connectors currently subscribed for tenantId.
	ConnectorsForTenant(tenantId string) []ConnectorInfo
	// BinarySizeThreshold returns the smallest limit advertised by any
	// connector currently subscribed for tenantId, or the global default
	// when none are subscribed.
	BinarySizeThreshold(tenantId string) int64
}

// HubConnectorTransport adapts a Hub into a ConnectorTransport.
type HubConnectorTransport struct {
	hub Hub
}

// NewHubConnectorTransport wraps hub.
func NewHubConnectorTransport(hub Hub) *HubConnectorTransport {
	return &HubConnectorTransport{hub: hub}
}

// Transmit implements ConnectorTransport.
func (t *HubConnectorTransport) Transmit(ctx context.Context, connectorId string, req *relaytypes.RelayRequest) error {
	if err := t.hub.Send(ctx, connectorId, req); err != nil {
		return fmt.Errorf("connector transport: %w", err)
	}
	return nil
}

// ConnectorsForTenant implements ConnectorTransport.
func (t *HubConnectorTransport) ConnectorsForTenant(tenantId string) []ConnectorInfo {
	return t.hub.ConnectorsForTenant(tenantId)
}

// BinarySizeThreshold implements ConnectorTransport.
func (t *HubConnectorTransport) BinarySizeThreshold(tenantId string) int64 {
	connectors := t.hub.ConnectorsForTenant(tenantId)
	if len(connectors) == 0 {
		return DefaultBinarySizeThreshold
	}
	min := connectors[0].BinarySizeThreshold
	for _, c := range connectors[1:] {
		if c.BinarySizeThreshold < min {
			min = c.BinarySizeThreshold
		}
	}
	return min
}
