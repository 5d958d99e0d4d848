// Package kv persists small string values such as the ids of the results
// board channel and message.
package kv

import "context"

// Store is a minimal string key-value cache.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Put inserts or replaces the value for key.
	Put(ctx context.Context, key, value string) error
}
