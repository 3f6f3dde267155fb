package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore is a cache store for tests. It never expires entries on its own
// but records the TTL of every write, and can be told to fail.
type MemoryStore struct {
	entries *xsync.MapOf[string, memoryEntry]

	mu     sync.Mutex
	getErr error
	setErr error
	gets   int
	sets   int
}

type memoryEntry struct {
	value []byte
	ttl   time.Duration
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: xsync.NewMapOf[string, memoryEntry]()}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	e, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.sets++
	err := s.setErr
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.entries.Store(key, memoryEntry{value: append([]byte(nil), value...), ttl: ttl})
	return nil
}

// Put stores value directly, bypassing failure injection.
func (s *MemoryStore) Put(key string, value []byte) {
	s.entries.Store(key, memoryEntry{value: value})
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.entries.Delete(key)
}

// Has reports whether key is stored.
func (s *MemoryStore) Has(key string) bool {
	_, ok := s.entries.Load(key)
	return ok
}

// Value returns the stored bytes for key.
func (s *MemoryStore) Value(key string) ([]byte, bool) {
	e, ok := s.entries.Load(key)
	return e.value, ok
}

// TTL returns the TTL passed with the last write of key.
func (s *MemoryStore) TTL(key string) (time.Duration, bool) {
	e, ok := s.entries.Load(key)
	return e.ttl, ok
}

// Keys returns every stored key.
func (s *MemoryStore) Keys() []string {
	keys := make([]string, 0, s.entries.Size())
	s.entries.Range(func(k string, _ memoryEntry) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}

// FailGets makes every Get return err. A nil err restores normal behavior.
func (s *MemoryStore) FailGets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// FailSets makes every Set return err. A nil err restores normal behavior.
func (s *MemoryStore) FailSets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

// Calls returns the number of Get and Set calls so far.
func (s *MemoryStore) Calls() (gets, sets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.sets
}
