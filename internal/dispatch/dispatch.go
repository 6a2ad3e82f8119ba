// Package dispatch implements C5: the request coordinator / tenant
// dispatcher that picks one of a tenant's currently-subscribed connectors
// and pushes the request to it via C3 (transport.ConnectorTransport).
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/drewpayment/orbit-relay/internal/relayerr"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
	"github.com/drewpayment/orbit-relay/internal/transport"
)

// RequestCoordinator chooses a connector for a tenant with round-robin
// fairness and forwards the request through it, retrying the selection
// exactly once if the chosen connector has dropped between selection and
// transmit (spec §4.2).
type RequestCoordinator struct {
	connectors transport.ConnectorTransport

	mu      sync.Mutex
	cursors map[string]*uint64 // tenantId -> round-robin cursor
}

// NewRequestCoordinator creates a RequestCoordinator over the given
// connector transport.
func NewRequestCoordinator(connectors transport.ConnectorTransport) *RequestCoordinator {
	return &RequestCoordinator{
		connectors: connectors,
		cursors:    make(map[string]*uint64),
	}
}

// DeliverRequest resolves a connector for req.TenantId and transmits req
// to it. Returns a TransportError if no connector is subscribed, or if
// transmission fails twice in a row (the second attempt after a
// re-selection).
func (d *RequestCoordinator) DeliverRequest(ctx context.Context, req *relaytypes.RelayRequest) error {
	for attempt := 0; attempt < 2; attempt++ {
		connectors := d.connectors.ConnectorsForTenant(req.TenantId)
		if len(connectors) == 0 {
			return relayerr.ErrNoConnector
		}

		chosen := d.next(req.TenantId, len(connectors))
		connectorId := connectors[chosen].ConnectorId

		err := d.connectors.Transmit(ctx, connectorId, req)
		if err == nil {
			return nil
		}
		if attempt == 1 {
			return relayerr.NewTransportError(fmt.Sprintf("connector %s unreachable after retry: %v", connectorId, err))
		}
		// First failure: the chosen connector dropped between selection
		// and transmit. Re-select once before surfacing an error.
	}
	return relayerr.NewTransportError("no connector available for tenant " + req.TenantId)
}

// BinarySizeThreshold reports the inline-body cutoff currently in effect
// for a tenant, delegating to the connector transport.
func (d *RequestCoordinator) BinarySizeThreshold(tenantId string) int64 {
	return d.connectors.BinarySizeThreshold(tenantId)
}

func (d *RequestCoordinator) next(tenantId string, n int) int {
	d.mu.Lock()
	cursor, ok := d.cursors[tenantId]
	if !ok {
		cursor = new(uint64)
		d.cursors[tenantId] = cursor
	}
	d.mu.Unlock()

	v := atomic.AddUint64(cursor, 1)
	return int(v % uint64(n))
}
