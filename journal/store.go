package journal

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when nothing was ever written.
var ErrNotFound = errors.New("journal: no session table stored")

// Store persists the encoded session table.
type Store interface {
	// Read returns the last written blob or ErrNotFound.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored blob. A nil error acknowledges durability.
	Write(ctx context.Context, data []byte) error
}
