package ingress

import (
	"bytes"
	"io"
	"os"

	"github.com/drewpayment/orbit-relay/internal/lifecycle"
)

// DefaultMemorySpoolLimit is the largest request body ingress buffers
// entirely in memory before spilling the remainder to a temp file.
const DefaultMemorySpoolLimit int64 = 4 << 20 // 4 MiB

// bufferedBody is a fully-drained, rewindable copy of an inbound request
// body: either held in memory, or spooled to a temp file once it exceeds
// the configured limit. Either way the caller reads it any number of times
// without re-touching the original (single-use, non-seekable) HTTP body
// reader.
type bufferedBody struct {
	size int64

	mem  []byte   // set when the body fit within the spool limit
	file *os.File // set when it did not
}

// bufferBody drains r (capped at limit for the in-memory path) into a
// bufferedBody, spilling to a temp file if the body is larger. The
// returned Disposable removes the temp file, if one was created; it is a
// no-op for the in-memory path.
func bufferBody(r io.Reader, limit int64) (*bufferedBody, lifecycle.Disposable, error) {
	if limit <= 0 {
		limit = DefaultMemorySpoolLimit
	}

	lr := io.LimitReader(r, limit+1)
	head, err := io.ReadAll(lr)
	if err != nil {
		return nil, nil, err
	}

	if int64(len(head)) <= limit {
		return &bufferedBody{size: int64(len(head)), mem: head}, lifecycle.Noop, nil
	}

	// Body exceeds the in-memory cap: spool what's already been read plus
	// the remainder to a temp file.
	f, err := os.CreateTemp("", "orbit-relay-body-*")
	if err != nil {
		return nil, nil, err
	}
	dispose := lifecycle.Once(func() {
		f.Close()
		os.Remove(f.Name())
	})

	n, err := f.Write(head)
	if err != nil {
		dispose()
		return nil, nil, err
	}
	written := int64(n)

	copied, err := io.Copy(f, r)
	if err != nil {
		dispose()
		return nil, nil, err
	}
	written += copied

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		dispose()
		return nil, nil, err
	}

	return &bufferedBody{size: written, file: f}, dispose, nil
}

// Size reports the total body length.
func (b *bufferedBody) Size() int64 { return b.size }

// Bytes returns the whole body as a slice. Only valid for the in-memory
// path; callers must check Outsourced first.
func (b *bufferedBody) Bytes() []byte { return b.mem }

// Outsourced reports whether the body was spooled to disk rather than held
// inline.
func (b *bufferedBody) Outsourced() bool { return b.file != nil }

// Reader returns a fresh reader over the whole body, rewinding the
// underlying temp file if that's the backing.
func (b *bufferedBody) Reader() (io.Reader, error) {
	if b.file != nil {
		if _, err := b.file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return b.file, nil
	}
	return bytes.NewReader(b.mem), nil
}
