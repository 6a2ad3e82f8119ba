package ingress

import (
	"github.com/drewpayment/orbit-relay/internal/lifecycle"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// RelayContext is the per-request state an interceptor pipeline observes
// and mutates. It is not safe for concurrent use — exactly one goroutine
// (the HTTP worker handling the request) ever touches it.
type RelayContext struct {
	Request *relaytypes.RelayRequest

	// TargetResponse, when non-nil after the client-request interceptor
	// pass, short-circuits connector delivery unless ForceConnectorDelivery
	// is also set.
	TargetResponse *relaytypes.TargetResponse

	// ForceConnectorDelivery requests connector delivery even though a
	// TargetResponse is already present. Per this spec's resolution of the
	// source's open question, the connector's eventual response overwrites
	// TargetResponse in that case.
	ForceConnectorDelivery bool

	bag *lifecycle.Bag
}

// AttachDisposable adds d to the request's disposable bag, released
// unconditionally once the pipeline finishes (spec §5).
func (c *RelayContext) AttachDisposable(d lifecycle.Disposable) {
	c.bag.Add(d)
}

// ReplaceBody swaps the request's inline body content, attaching the
// previous content's release (if any) to the disposable bag — required
// when an interceptor rewrites the payload (spec §4.1 step 7).
func (c *RelayContext) ReplaceBody(content []byte, previousDisposable lifecycle.Disposable) {
	c.Request.BodyContent = content
	c.Request.BodySize = int64(len(content))
	if previousDisposable != nil {
		c.bag.Add(previousDisposable)
	}
}
