package coordinator

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/drewpayment/orbit-relay/internal/lifecycle"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// AckCallback is the broker's native acknowledge function — typically
// "commit this message" — supplied at registration time and invoked
// exactly once per RequestId (spec §4.4).
type AckCallback func(acknowledgeId string)

type ackWaiter struct {
	callback AckCallback
	once     sync.Once
}

// AcknowledgeCoordinator is C7: structurally identical to the
// ResponseCoordinator, but instead of handing a value back to a blocked
// HTTP worker it invokes a registered callback exactly once. A second
// arrival for the same RequestId is a no-op — at-least-once delivery
// allows duplicates (spec §8 invariant 7).
type AcknowledgeCoordinator struct {
	log     *logrus.Entry
	waiters sync.Map // requestId -> *ackWaiter
}

// NewAcknowledgeCoordinator creates an empty AcknowledgeCoordinator.
func NewAcknowledgeCoordinator(log *logrus.Entry) *AcknowledgeCoordinator {
	return &AcknowledgeCoordinator{log: log}
}

// RegisterRequest installs cb as the callback to run the first time an
// acknowledgement arrives for requestId. The returned Disposable removes
// the slot if it is never fulfilled.
func (c *AcknowledgeCoordinator) RegisterRequest(requestId string, cb AckCallback) lifecycle.Disposable {
	w := &ackWaiter{callback: cb}
	c.waiters.Store(requestId, w)
	return lifecycle.Once(func() { c.waiters.Delete(requestId) })
}

// ProcessAcknowledge looks up the callback for ack.RequestId, invokes it
// once, and removes the entry. A second arrival for the same RequestId is
// a no-op.
func (c *AcknowledgeCoordinator) ProcessAcknowledge(ack *relaytypes.AcknowledgeRequest) {
	v, ok := c.waiters.LoadAndDelete(ack.RequestId)
	if !ok {
		// Either already acknowledged (duplicate, expected under
		// at-least-once delivery) or the origin that cared is gone.
		c.log.WithField("request_id", ack.RequestId).Debug("acknowledge for unknown or already-acked request")
		return
	}
	w := v.(*ackWaiter)
	w.once.Do(func() { w.callback(ack.AcknowledgeId) })
}
