package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMemoryMaxEntries = 10000
	defaultMemoryMaxBytes   = int64(64 << 20)
	defaultMemoryTTL        = 30 * time.Minute

	// memoryEntryOverhead approximates per-entry bookkeeping (list element,
	// map bucket, struct fields) for the byte bound.
	memoryEntryOverhead = 96
)

// MemoryTier is the fast in-process tier: a strict-LRU map bounded by both
// entry count and estimated total bytes. Eviction removes the entry with the
// oldest lastAccess whenever either bound is exceeded. TTL is enforced on
// read.
type MemoryTier struct {
	mu         sync.Mutex
	order      *list.List // front = most recently used
	entries    map[string]*list.Element
	maxEntries int
	maxBytes   int64
	defaultTTL time.Duration
	sizeBytes  int64

	hits   atomic.Uint64
	misses atomic.Uint64
}

type memoryEntry struct {
	key         string
	value       []byte
	createdAt   time.Time
	ttl         time.Duration
	lastAccess  time.Time
	accessCount uint64
	size        int64
}

// MemoryOptions bounds the tier. Zero values get defaults.
type MemoryOptions struct {
	MaxEntries int
	MaxBytes   int64
	DefaultTTL time.Duration
}

// NewMemoryTier builds the in-process tier.
func NewMemoryTier(opts MemoryOptions) *MemoryTier {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMemoryMaxEntries
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMemoryMaxBytes
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	return &MemoryTier{
		order:      list.New(),
		entries:    make(map[string]*list.Element, maxEntries),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		defaultTTL: ttl,
	}
}

// Get returns the value for key when present and unexpired, refreshing its
// LRU position.
func (t *MemoryTier) Get(key string) ([]byte, bool) {
	now := time.Now()
	t.mu.Lock()
	elem, ok := t.entries[key]
	if !ok {
		t.mu.Unlock()
		t.misses.Add(1)
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if now.Sub(entry.createdAt) > entry.ttl {
		t.removeLocked(elem)
		t.mu.Unlock()
		t.misses.Add(1)
		return nil, false
	}
	entry.lastAccess = now
	entry.accessCount++
	t.order.MoveToFront(elem)
	value := entry.value
	t.mu.Unlock()
	t.hits.Add(1)
	return value, true
}

// Set stores the value, evicting least-recently-used entries until both the
// entry and byte bounds hold.
func (t *MemoryTier) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	now := time.Now()
	size := int64(len(key)+len(value)) + memoryEntryOverhead

	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.entries[key]; ok {
		t.removeLocked(elem)
	}
	entry := &memoryEntry{
		key:        key,
		value:      value,
		createdAt:  now,
		ttl:        ttl,
		lastAccess: now,
		size:       size,
	}
	t.entries[key] = t.order.PushFront(entry)
	t.sizeBytes += size

	for (len(t.entries) > t.maxEntries || t.sizeBytes > t.maxBytes) && t.order.Len() > 1 {
		t.removeLocked(t.order.Back())
	}
	return nil
}

// Stats reports current occupancy and hit counters.
func (t *MemoryTier) Stats() TierStats {
	t.mu.Lock()
	entries := len(t.entries)
	size := t.sizeBytes
	t.mu.Unlock()
	return TierStats{
		Name:      "memory",
		Entries:   entries,
		SizeBytes: size,
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
	}
}

// Close releases the map; subsequent operations see an empty tier.
func (t *MemoryTier) Close() error {
	t.mu.Lock()
	t.order = list.New()
	t.entries = make(map[string]*list.Element)
	t.sizeBytes = 0
	t.mu.Unlock()
	return nil
}

func (t *MemoryTier) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	t.order.Remove(elem)
	delete(t.entries, entry.key)
	t.sizeBytes -= entry.size
}
