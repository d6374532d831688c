// Package blob stores attachment bytes behind opaque handles.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a handle has no stored bytes.
var ErrNotFound = errors.New("blob not found")

// Store persists raw bytes. The handle returned by Put is the only way to
// address the bytes afterwards.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}
