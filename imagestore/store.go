package imagestore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when an image does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store is a destination for images. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put stores the contents of r under name. A reader observing name
	// sees either the previous image or the complete new one.
	Put(ctx context.Context, name string, r io.Reader) error
	// Open opens an image for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
