// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"time"

	"go.astrophena.name/truckdoc/internal/syncx"
)

// MemStore keeps values in process memory. Its contents are lost when the
// process exits, so chats fall back to the default language after a restart.
type MemStore struct {
	ttl     time.Duration
	entries syncx.Map[string, memEntry]
	stop    context.CancelFunc
	done    chan struct{}    // closed when the sweeper exits
	now     func() time.Time // for tests
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// NewMemStore creates a new MemStore. Every access extends the life of a key
// by ttl. Expired keys are swept until ctx is canceled or the store is closed.
func NewMemStore(ctx context.Context, ttl time.Duration) *MemStore {
	ctx, stop := context.WithCancel(ctx)
	s := &MemStore{
		ttl:  ttl,
		stop: stop,
		done: make(chan struct{}),
		now:  time.Now,
	}
	go s.sweep(ctx)
	return s
}

func (s *MemStore) sweep(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-ctx.Done():
			return
		}
	}
}

func (s *MemStore) deleteExpired() {
	now := s.now()
	s.entries.Range(func(key string, e memEntry) bool {
		if now.After(e.expires) {
			s.entries.Delete(key)
		}
		return true
	})
}

// Get returns a copy of the value stored under key.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.entries.Load(key)
	if !ok {
		return nil, nil
	}
	now := s.now()
	if now.After(e.expires) {
		s.entries.Delete(key)
		return nil, nil
	}
	e.expires = now.Add(s.ttl)
	s.entries.Store(key, e)
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value under key.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	s.entries.Store(key, memEntry{
		value:   append([]byte(nil), value...),
		expires: s.now().Add(s.ttl),
	})
	return nil
}

// Ping always succeeds.
func (s *MemStore) Ping(context.Context) error { return nil }

// Close stops the sweeper and waits for it to exit. Stored values stay
// readable.
func (s *MemStore) Close() error {
	s.stop()
	<-s.done
	return nil
}
