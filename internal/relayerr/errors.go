// Package relayerr defines the error kinds the ingress pipeline maps to
// HTTP status codes (spec §7). Coordinators and connectors never translate
// these into HTTP shapes themselves — that mapping lives entirely in
// internal/ingress.
package relayerr

import "errors"

// TransportError means no connector could be reached for a tenant, or a
// publish to the connector transport failed after the single retry C5
// allows. Ingress maps this to 503.
type TransportError struct {
	Reason string
}

func (e *TransportError) Error() string { return "transport: " + e.Reason }

// NewTransportError builds a TransportError with the given reason.
func NewTransportError(reason string) error {
	return &TransportError{Reason: reason}
}

// ErrNoConnector is returned by the dispatcher when a tenant has no
// subscribed connectors.
var ErrNoConnector = NewTransportError("no connector available for tenant")

// ErrDuplicateWaiter is returned by RegisterRequest when a second waiter is
// installed for a RequestId already registered (spec §8 invariant 3).
var ErrDuplicateWaiter = errors.New("coordinator: waiter already registered for request id")

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
