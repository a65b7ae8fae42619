// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store implements a key-value store backed in-memory or by
// PostgreSQL.
//
// Values expire after a TTL measured from the last access. Nothing stored
// here is critical: callers must treat a missing key as "use the default".
package store

import (
	"context"
	"time"
)

// Store is a key-value store for small per-chat values.
type Store interface {
	// Get retrieves a value for a given key.
	// It must return (nil, nil) if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for a given key.
	Set(ctx context.Context, key string, value []byte) error
	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
	// Close closes the store and releases any resources.
	Close() error
}

// Open returns a [PostgresStore] if databaseURL is set and a [MemStore]
// otherwise.
func Open(ctx context.Context, databaseURL string, ttl time.Duration) (Store, error) {
	if databaseURL == "" {
		return NewMemStore(ctx, ttl), nil
	}
	return NewPostgresStore(ctx, databaseURL, ttl)
}
