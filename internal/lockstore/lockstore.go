// Package lockstore defines the TTL-capable shared key-value store backing
// slot holds. Any store with atomic set-with-expiry and multi-key
// transactions can implement it; the production implementation is Redis.
package lockstore

import (
	"context"
	"time"
)

type Entry struct {
	Key   string
	Value string
}

type Store interface {
	// PutNX writes all entries with the same TTL, atomically and only if
	// none of the keys exist yet. Returns false when any key is taken.
	PutNX(ctx context.Context, ttl time.Duration, entries ...Entry) (bool, error)

	// Get returns the value for key; the second result is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// ScanPrefix enumerates live entries whose key starts with prefix.
	ScanPrefix(ctx context.Context, prefix string) (map[string]string, error)
}
