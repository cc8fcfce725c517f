// Package store implements the BlobCache contract the caching scheduler
// depends on: get/insert/invalidate keyed by an opaque string, with
// advisory expiry. The caching scheduler never assumes anything about
// how entries are persisted beyond this contract.
package store

import (
	"context"
	"sync"
	"time"
)

// BlobCache is the narrow persistence contract the caching scheduler
// needs from an entry store.
type BlobCache interface {
	// Get returns the stored bytes for key, or ok=false if absent or
	// expired. A store-level failure degrades to ok=false, err!=nil; the
	// caller (component C) treats that the same as absence for lookup
	// purposes but surfaces it for logging.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Insert stores value under key. expiry is advisory and may be nil
	// (no absolute deadline — the caller still tracks must_revalidate
	// separately). Insert failures are logged by the caller and otherwise
	// ignored: they must never mask a transport outcome.
	Insert(ctx context.Context, key string, value []byte, expiry *time.Time) error
	// Invalidate removes key, if present.
	Invalidate(ctx context.Context, key string) error
}

type memoryEntry struct {
	value  []byte
	expiry *time.Time
}

// MemoryStore is an in-process BlobCache backed by a map. Useful as the
// default store and in tests; entries do not survive a process restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore builds an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expiry != nil && time.Now().After(*e.expiry) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *MemoryStore) Insert(_ context.Context, key string, value []byte, expiry *time.Time) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: stored, expiry: expiry}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len reports the current entry count, including not-yet-swept expired
// entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
