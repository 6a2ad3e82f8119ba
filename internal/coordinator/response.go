// Package coordinator implements C6 (ResponseCoordinator) and C7
// (AcknowledgeCoordinator): in-memory registries that match asynchronous
// arrivals, delivered over the broker, back to the single HTTP worker
// still waiting on them. Both keep one slot per RequestId in a sync.Map,
// with no global lock (spec §5). ResponseCoordinator claims its slot with
// LoadOrStore; AcknowledgeCoordinator stores over any existing slot.
package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/drewpayment/orbit-relay/internal/bodystore"
	"github.com/drewpayment/orbit-relay/internal/lifecycle"
	"github.com/drewpayment/orbit-relay/internal/relayerr"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// ErrNotRegistered is returned by GetResponse when no waiter was
// registered for the given RequestId (or it was already consumed/removed).
var ErrNotRegistered = errors.New("coordinator: no waiter registered for request id")

// ResolvedResponse pairs the arrived envelope with a readable handle for
// its body, whether inline or fetched from the BodyStore.
type ResolvedResponse struct {
	Response *relaytypes.TargetResponse
	Body     io.ReadCloser
}

type responseWaiter struct {
	ch chan *relaytypes.TargetResponse
}

// ResponseCoordinator is C6.
type ResponseCoordinator struct {
	log       *logrus.Entry
	store     bodystore.Store
	waiters   sync.Map // requestId -> *responseWaiter
}

// NewResponseCoordinator creates a ResponseCoordinator that resolves
// outsourced bodies against store.
func NewResponseCoordinator(store bodystore.Store, log *logrus.Entry) *ResponseCoordinator {
	return &ResponseCoordinator{store: store, log: log}
}

// RegisterRequest reserves a waiter slot for requestId. Installing a
// second waiter for the same id is an error (spec §8 invariant 3). The
// returned Disposable removes the slot even if no response ever arrives.
func (c *ResponseCoordinator) RegisterRequest(requestId string) (lifecycle.Disposable, error) {
	w := &responseWaiter{ch: make(chan *relaytypes.TargetResponse, 1)}
	if _, loaded := c.waiters.LoadOrStore(requestId, w); loaded {
		return nil, fmt.Errorf("%w: %s", relayerr.ErrDuplicateWaiter, requestId)
	}
	return lifecycle.Once(func() { c.waiters.Delete(requestId) }), nil
}

// GetResponse blocks until a response arrives for requestId, ctx is
// cancelled, or the waiter was never registered. A cancelled/expired
// GetResponse removes the slot (spec §8 invariant 2): RegisterRequest(id)
// .Dispose() followed by GetResponse(id) never blocks, it returns
// ErrNotRegistered immediately.
func (c *ResponseCoordinator) GetResponse(ctx context.Context, requestId string) (*ResolvedResponse, lifecycle.Disposable, error) {
	v, ok := c.waiters.Load(requestId)
	if !ok {
		return nil, nil, ErrNotRegistered
	}
	w := v.(*responseWaiter)

	select {
	case resp, ok := <-w.ch:
		c.waiters.Delete(requestId)
		if !ok {
			return nil, nil, ErrNotRegistered
		}
		return c.resolve(ctx, resp)
	case <-ctx.Done():
		c.waiters.Delete(requestId)
		return nil, nil, ctx.Err()
	}
}

func (c *ResponseCoordinator) resolve(ctx context.Context, resp *relaytypes.TargetResponse) (*ResolvedResponse, lifecycle.Disposable, error) {
	if !resp.Outsourced() {
		return &ResolvedResponse{Response: resp, Body: io.NopCloser(bytes.NewReader(resp.BodyContent))}, lifecycle.Noop, nil
	}

	handle, err := c.store.OpenResponseBody(ctx, resp.RequestId)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinator: open outsourced response body: %w", err)
	}
	dispose := lifecycle.Once(func() { handle.Close() })
	return &ResolvedResponse{Response: resp, Body: handle}, dispose, nil
}

// ProcessResponse is invoked by the server transport when a response lands
// on the broker. If a waiter exists, it is fulfilled; otherwise the
// response is dropped with a warning — the originating server instance is
// gone (spec §4.3).
func (c *ResponseCoordinator) ProcessResponse(resp *relaytypes.TargetResponse) {
	v, ok := c.waiters.Load(resp.RequestId)
	if !ok {
		c.log.WithField("request_id", resp.RequestId).Warn("response received for unknown or expired request")
		return
	}
	w := v.(*responseWaiter)
	select {
	case w.ch <- resp:
	default:
		// Buffer is size 1 and single-consumer; a second arrival for the
		// same id without an intervening GetResponse cannot happen under
		// the at-most-one-waiter invariant, but guard against it anyway.
		c.log.WithField("request_id", resp.RequestId).Warn("duplicate response dropped")
	}
}
