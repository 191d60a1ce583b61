// Package cache provides key-value backends for client-side cart
// persistence and the CartStorage adapter built on them.
package cache

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by operations on a closed store
var ErrStoreClosed = errors.New("cache: store is closed")

// KeyValueStore is string storage keyed by string. Get reports found=false
// for a missing key rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
