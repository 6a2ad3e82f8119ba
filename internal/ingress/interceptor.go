package ingress

import (
	"context"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// ClientRequestInterceptor runs, in registration order, after a
// RelayRequest has been built and before a dispatch decision is made. An
// interceptor may mutate rc.Request, set rc.TargetResponse to short-circuit
// connector delivery, or set rc.ForceConnectorDelivery to require delivery
// even though a response is already present. Returning an error aborts the
// pipeline; it is treated as an internal error (spec §7).
type ClientRequestInterceptor func(ctx context.Context, rc *RelayContext) error

// TargetResponseInterceptor runs, in registration order, once a
// TargetResponse has been resolved (whether short-circuited or delivered by
// a connector) and before it is written back to the caller.
type TargetResponseInterceptor func(ctx context.Context, rc *RelayContext) error

// RequestFactory builds the RelayRequest that the rest of the pipeline
// carries. requestId has already been minted and registered with the
// response coordinator by the time the factory runs.
type RequestFactory interface {
	NewRelayRequest(ctx context.Context, in FactoryInput) (*relaytypes.RelayRequest, error)
}
