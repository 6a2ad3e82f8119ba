package coordinator

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

func newTestAcknowledgeCoordinator() *AcknowledgeCoordinator {
	return NewAcknowledgeCoordinator(logrus.NewEntry(logrus.New()))
}

func TestAcknowledgeCoordinator_InvokesCallbackOnce(t *testing.T) {
	c := newTestAcknowledgeCoordinator()

	var calls int
	var lastAckId string
	dispose := c.RegisterRequest("req-1", func(ackId string) {
		calls++
		lastAckId = ackId
	})
	defer dispose()

	c.ProcessAcknowledge(&relaytypes.AcknowledgeRequest{RequestId: "req-1", AcknowledgeId: "ack-1"})
	c.ProcessAcknowledge(&relaytypes.AcknowledgeRequest{RequestId: "req-1", AcknowledgeId: "ack-2"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "ack-1", lastAckId)
}

func TestAcknowledgeCoordinator_UnknownRequestIsNoop(t *testing.T) {
	c := newTestAcknowledgeCoordinator()
	c.ProcessAcknowledge(&relaytypes.AcknowledgeRequest{RequestId: "ghost", AcknowledgeId: "ack-1"})
}

func TestAcknowledgeCoordinator_DisposeRemovesWaiter(t *testing.T) {
	c := newTestAcknowledgeCoordinator()

	var calls int
	dispose := c.RegisterRequest("req-1", func(string) { calls++ })
	dispose()

	c.ProcessAcknowledge(&relaytypes.AcknowledgeRequest{RequestId: "req-1", AcknowledgeId: "ack-1"})
	assert.Equal(t, 0, calls)
}
