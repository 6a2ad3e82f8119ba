package bodystore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystem is a BodyStore backed by a local directory. Entries are
// regular files named by namespace and RequestId; the returned
// ReadCloser removes the file on Close.
type FileSystem struct {
	root string
}

// NewFileSystem creates a filesystem-backed store rooted at dir. The
// directory is created if it does not exist.
func NewFileSystem(dir string) (*FileSystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bodystore: create root: %w", err)
	}
	return &FileSystem{root: dir}, nil
}

func (f *FileSystem) path(namespace, requestId string) string {
	return filepath.Join(f.root, namespace+"-"+requestId)
}

func (f *FileSystem) store(_ context.Context, namespace, requestId string, r io.Reader) (int64, error) {
	path := f.path(namespace, requestId)
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("bodystore: create %s: %w", path, err)
	}
	defer file.Close()

	n, err := io.Copy(file, r)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("bodystore: write %s: %w", path, err)
	}
	return n, nil
}

func (f *FileSystem) open(_ context.Context, namespace, requestId string) (ReadCloser, error) {
	path := f.path(namespace, requestId)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bodystore: open %s: %w", path, err)
	}
	return &fileHandle{File: file, path: path}, nil
}

// StoreRequestBody implements Store.
func (f *FileSystem) StoreRequestBody(ctx context.Context, requestId string, r io.Reader) (int64, error) {
	return f.store(ctx, "request", requestId, r)
}

// OpenRequestBody implements Store.
func (f *FileSystem) OpenRequestBody(ctx context.Context, requestId string) (ReadCloser, error) {
	return f.open(ctx, "request", requestId)
}

// StoreResponseBody implements Store.
func (f *FileSystem) StoreResponseBody(ctx context.Context, requestId string, r io.Reader) (int64, error) {
	return f.store(ctx, "response", requestId, r)
}

// OpenResponseBody implements Store.
func (f *FileSystem) OpenResponseBody(ctx context.Context, requestId string) (ReadCloser, error) {
	return f.open(ctx, "response", requestId)
}

// fileHandle deletes its backing file once closed, so the entry lives
// exactly as long as the consumer's disposable bag holds it open.
type fileHandle struct {
	*os.File
	path string
}

func (h *fileHandle) Close() error {
	closeErr := h.File.Close()
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		if closeErr == nil {
			return err
		}
	}
	return closeErr
}
