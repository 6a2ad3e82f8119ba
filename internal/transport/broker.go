package transport

import (
	"context"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// Broker is the abstract pub/sub contract C4 (ServerTransport) is built
// on: per-origin response/acknowledge queues, published non-durably by
// connectors and consumed only by the owning origin (spec §4.6). Only
// this contract matters to the core; kafkabroker provides one concrete
// backing.
type Broker interface {
	PublishResponse(ctx context.Context, originId string, resp *relaytypes.TargetResponse) error
	PublishAcknowledge(ctx context.Context, originId string, ack *relaytypes.AcknowledgeRequest) error

	// ConsumeResponses blocks, invoking handler for every response landing
	// on originId's queue, until ctx is cancelled.
	ConsumeResponses(ctx context.Context, originId string, handler func(*relaytypes.TargetResponse)) error
	// ConsumeAcknowledges blocks, invoking handler for every acknowledgement
	// landing on originId's queue, until ctx is cancelled.
	ConsumeAcknowledges(ctx context.Context, originId string, handler func(*relaytypes.AcknowledgeRequest)) error
}

// ServerTransport is C4: dispatches responses/acks to the origin server
// instance that owns the request (by publishing to that origin's queue),
// and drives consumption of this origin's own queues into the
// response/acknowledge coordinators.
type ServerTransport interface {
	DispatchResponse(ctx context.Context, resp *relaytypes.TargetResponse) error
	DispatchAcknowledge(ctx context.Context, ack *relaytypes.AcknowledgeRequest) error
	// Run consumes this origin's queues until ctx is cancelled, calling
	// onResponse/onAcknowledge for each arrival.
	Run(ctx context.Context, originId string, onResponse func(*relaytypes.TargetResponse), onAcknowledge func(*relaytypes.AcknowledgeRequest)) error
}

// BrokerServerTransport adapts a Broker into a ServerTransport.
type BrokerServerTransport struct {
	broker Broker
}

// NewBrokerServerTransport wraps broker.
func NewBrokerServerTransport(broker Broker) *BrokerServerTransport {
	return &BrokerServerTransport{broker: broker}
}

// DispatchResponse implements ServerTransport.
func (t *BrokerServerTransport) DispatchResponse(ctx context.Context, resp *relaytypes.TargetResponse) error {
	return t.broker.PublishResponse(ctx, resp.RequestOriginId, resp)
}

// DispatchAcknowledge implements ServerTransport.
func (t *BrokerServerTransport) DispatchAcknowledge(ctx context.Context, ack *relaytypes.AcknowledgeRequest) error {
	return t.broker.PublishAcknowledge(ctx, ack.OriginId, ack)
}

// Run implements ServerTransport.
func (t *BrokerServerTransport) Run(ctx context.Context, originId string, onResponse func(*relaytypes.TargetResponse), onAcknowledge func(*relaytypes.AcknowledgeRequest)) error {
	errCh := make(chan error, 2)
	go func() { errCh <- t.broker.ConsumeResponses(ctx, originId, onResponse) }()
	go func() { errCh <- t.broker.ConsumeAcknowledges(ctx, originId, onAcknowledge) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
