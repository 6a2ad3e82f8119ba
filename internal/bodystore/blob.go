package bodystore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Blob is a BodyStore backed by an S3-compatible object store, grounded on
// the MinIO client pattern in temporal-workflows/internal/clients/storage_client.go.
type Blob struct {
	client *minio.Client
	bucket string
}

// NewBlob creates a MinIO-backed body store against bucket, creating it if
// it does not already exist.
func NewBlob(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Blob, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("bodystore: creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("bodystore: checking bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("bodystore: creating bucket: %w", err)
		}
	}

	return &Blob{client: client, bucket: bucket}, nil
}

func objectKey(namespace, requestId string) string {
	return namespace + "/" + requestId
}

func (b *Blob) store(ctx context.Context, namespace, requestId string, r io.Reader) (int64, error) {
	info, err := b.client.PutObject(ctx, b.bucket, objectKey(namespace, requestId), r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, fmt.Errorf("bodystore: put %s: %w", requestId, err)
	}
	return info.Size, nil
}

func (b *Blob) open(ctx context.Context, namespace, requestId string) (ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, objectKey(namespace, requestId), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("bodystore: get %s: %w", requestId, err)
	}
	return &blobHandle{client: b.client, bucket: b.bucket, key: objectKey(namespace, requestId), Object: obj}, nil
}

// StoreRequestBody implements Store.
func (b *Blob) StoreRequestBody(ctx context.Context, requestId string, r io.Reader) (int64, error) {
	return b.store(ctx, "requests", requestId, r)
}

// OpenRequestBody implements Store.
func (b *Blob) OpenRequestBody(ctx context.Context, requestId string) (ReadCloser, error) {
	return b.open(ctx, "requests", requestId)
}

// StoreResponseBody implements Store.
func (b *Blob) StoreResponseBody(ctx context.Context, requestId string, r io.Reader) (int64, error) {
	return b.store(ctx, "responses", requestId, r)
}

// OpenResponseBody implements Store.
func (b *Blob) OpenResponseBody(ctx context.Context, requestId string) (ReadCloser, error) {
	return b.open(ctx, "responses", requestId)
}

// blobHandle deletes the backing object once the consumer is done reading
// it, matching the filesystem backing's last-reader-deletes semantics.
type blobHandle struct {
	*minio.Object
	client *minio.Client
	bucket string
	key    string
}

func (h *blobHandle) Close() error {
	closeErr := h.Object.Close()
	// Best-effort: removal failures are not fatal to the caller that
	// already received its bytes.
	_ = h.client.RemoveObject(context.Background(), h.bucket, h.key, minio.RemoveObjectOptions{})
	return closeErr
}
