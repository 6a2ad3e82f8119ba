// Package bodystore implements content-addressed staging of oversized
// request/response payloads, keyed by RequestId. Only the (store, open,
// release) contract matters to the rest of the core (spec §4.7); this
// package provides two interchangeable backings — filesystem and
// S3-compatible blob storage — matching "Implementation may be
// filesystem- or blob-backed".
package bodystore

import (
	"context"
	"io"
)

// Store stages and retrieves oversized bodies by RequestId. Request and
// response bodies are stored under distinct namespaces so the two streams
// for a single RequestId never collide.
type Store interface {
	StoreRequestBody(ctx context.Context, requestId string, r io.Reader) (bytesWritten int64, err error)
	OpenRequestBody(ctx context.Context, requestId string) (ReadCloser, error)

	StoreResponseBody(ctx context.Context, requestId string, r io.Reader) (bytesWritten int64, err error)
	OpenResponseBody(ctx context.Context, requestId string) (ReadCloser, error)
}

// ReadCloser is a readable handle whose Close both releases local resources
// and deletes the underlying staged entry — the last reader deletes, per
// spec §3's BodyStore ownership invariant.
type ReadCloser interface {
	io.Reader
	Close() error
}
