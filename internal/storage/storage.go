// Package storage keeps the client's persisted local state (the auth token
// and the cart snapshot) in a pluggable key/value backend.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: key not found")

// Store is a flat byte-valued key/value store. Get returns ErrNotFound for
// absent keys; Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
