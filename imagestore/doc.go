// Package imagestore stores block images produced by bcachetool dump.
//
// A Store is a flat namespace of immutable images:
//
//	type Store interface {
//	    Put(ctx, name, r) error          // Replace name with the contents of r
//	    Open(ctx, name) (io.ReadCloser, error)
//	}
//
// # Built-in Implementations
//
//   - Local: a directory on the local file system, written atomically
//   - S3: Amazon S3 via multipart uploads
//   - MinIO: MinIO and other S3-compatible services
//   - Memory: in-process, for tests
//
// FromURL selects an implementation from a location such as
// "s3://bucket/prefix", "minio://host:9000/bucket" or a plain directory.
package imagestore
