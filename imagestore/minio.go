package imagestore

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// minioPartSize bounds the buffer minio-go allocates for uploads of
// unknown length.
const minioPartSize = 16 * 1024 * 1024

// MinIO stores images in MinIO or another S3-compatible service.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO creates a MinIO store. prefix is prepended to every key.
func NewMinIO(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{client: client, bucket: bucket, prefix: prefix}
}

func (s *MinIO) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put streams r into the object.
func (s *MinIO) Put(ctx context.Context, name string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    minioPartSize,
	})
	return err
}

// Open returns a reader for the object.
func (s *MinIO) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err)
	}
	// GetObject is lazy; Stat surfaces a missing key now.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinIOError(err)
	}
	return obj, nil
}

func mapMinIOError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	default:
		return err
	}
}
