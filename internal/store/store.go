// Package store is the small key/value surface used by rate limiting and
// submission idempotency. MemoryStore is process-local; RedisStore is shared
// across instances.
package store

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a TTL key/value store with an atomic counter.
type Store interface {
	Seen(ctx context.Context, key string) bool
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// DefaultMaxEntries bounds a MemoryStore created with a non-positive size.
const DefaultMaxEntries = 2048

// Stores are the separate keyspaces of the API. Login rate counters never
// compete with idempotency entries for the same capacity.
type Stores struct {
	Auth        Store
	Idempotency Store
}

// NewStores returns Redis-backed stores under distinct prefixes, or two
// independent MemoryStores when client is nil.
func NewStores(client *redis.Client, logger *slog.Logger) Stores {
	if client == nil {
		return Stores{
			Auth:        NewMemoryStore(DefaultMaxEntries),
			Idempotency: NewMemoryStore(DefaultMaxEntries),
		}
	}
	return Stores{
		Auth:        NewRedisStore(client, "ki:auth:", logger),
		Idempotency: NewRedisStore(client, "ki:idem:", logger),
	}
}

type memEntry struct {
	key     string
	value   string
	count   int64
	expires time.Time
}

// MemoryStore is a mutex-protected map with per-key expiry and LRU eviction.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries keys.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		max:     maxEntries,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Seen reports whether key exists and has not expired.
func (s *MemoryStore) Seen(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key) != nil
}

// Put stores value under key for ttl. A zero ttl never expires.
func (s *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.upsert(key, ttl)
	e.value = value
	e.count = 0
	return nil
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.lookup(key); e != nil {
		return e.value, true
	}
	return "", false
}

// Incr increments the counter under key. The ttl is applied only when the
// key is created, so the window is fixed from the first hit.
func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		e = s.upsert(key, ttl)
	}
	e.count++
	return e.count, nil
}

// Len returns the number of live and not yet collected entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *MemoryStore) lookup(key string) *memEntry {
	el, ok := s.entries[key]
	if !ok {
		return nil
	}
	e := el.Value.(*memEntry)
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.order.Remove(el)
		delete(s.entries, key)
		return nil
	}
	s.order.MoveToFront(el)
	return e
}

func (s *MemoryStore) upsert(key string, ttl time.Duration) *memEntry {
	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	if el, ok := s.entries[key]; ok {
		e := el.Value.(*memEntry)
		e.expires = expires
		s.order.MoveToFront(el)
		return e
	}
	e := &memEntry{key: key, expires: expires}
	s.entries[key] = s.order.PushFront(e)
	for s.order.Len() > s.max {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*memEntry).key)
	}
	return e
}
