package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

const (
	pebbleRecordVersion    = 1
	pebbleRecordHeaderSize = 1 + 8 + 8 + 8 // version, createdAt, ttl, lastAccess

	defaultPebbleTTL        = 7 * 24 * time.Hour
	defaultPebbleMaxEntries = 500000
	defaultPebbleCacheBytes = int64(16 << 20)
	defaultPebbleBloomBits  = 10

	// purgeProbability makes TTL sweeps probabilistic rather than per-write:
	// roughly one write in fifty pays the maintenance cost.
	purgeProbability = 0.02
)

var errPebbleClosed = errors.New("cache: pebble tier is closed")

// PebbleOptions tunes the local persistent tier. Zero values get defaults.
type PebbleOptions struct {
	Path       string
	DefaultTTL time.Duration
	MaxEntries int
	CacheBytes int64
}

// PebbleTier is the local persistent tier. Each record carries its creation
// time, TTL, and last access in a fixed header so expiry and LRU-order trims
// work without a secondary index. Expired rows are purged probabilistically
// on write, not on every call.
type PebbleTier struct {
	db         *pebble.DB
	cache      *pebble.Cache
	defaultTTL time.Duration
	maxEntries int

	mu     sync.Mutex
	closed bool

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPebbleTier opens (or creates) the store at opts.Path.
func NewPebbleTier(opts PebbleOptions) (*PebbleTier, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("cache: pebble path is empty")
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = defaultPebbleTTL
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultPebbleMaxEntries
	}
	cacheBytes := opts.CacheBytes
	if cacheBytes <= 0 {
		cacheBytes = defaultPebbleCacheBytes
	}

	pebbleCache := pebble.NewCache(cacheBytes)
	pebbleOpts := &pebble.Options{
		Cache: pebbleCache,
		Levels: []pebble.LevelOptions{{
			FilterPolicy: bloom.FilterPolicy(defaultPebbleBloomBits),
		}},
	}
	db, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		pebbleCache.Unref()
		return nil, fmt.Errorf("cache: open pebble store %q: %w", opts.Path, err)
	}
	return &PebbleTier{
		db:         db,
		cache:      pebbleCache,
		defaultTTL: ttl,
		maxEntries: maxEntries,
	}, nil
}

// Get returns the stored value when present and unexpired. An expired row is
// deleted on sight. The record's lastAccess is refreshed so capacity trims
// keep recently read entries.
func (t *PebbleTier) Get(key string) ([]byte, bool) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, false
	}
	db := t.db
	t.mu.Unlock()

	raw, closer, err := db.Get([]byte(key))
	if err != nil {
		t.misses.Add(1)
		return nil, false
	}
	record := make([]byte, len(raw))
	copy(record, raw)
	_ = closer.Close()

	createdAt, ttl, _, value, err := decodeRecord(record)
	if err != nil {
		_ = db.Delete([]byte(key), pebble.NoSync)
		t.misses.Add(1)
		return nil, false
	}
	now := time.Now()
	if now.Sub(createdAt) > ttl {
		_ = db.Delete([]byte(key), pebble.NoSync)
		t.misses.Add(1)
		return nil, false
	}

	// Refresh lastAccess in place; a lost write here only skews trim order.
	_ = db.Set([]byte(key), encodeRecord(createdAt, ttl, now, value), pebble.NoSync)

	t.hits.Add(1)
	return value, true
}

// Set stores the value and occasionally runs maintenance (TTL purge plus a
// lastAccess-ordered trim down to capacity).
func (t *PebbleTier) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errPebbleClosed
	}
	db := t.db
	t.mu.Unlock()

	now := time.Now()
	if err := db.Set([]byte(key), encodeRecord(now, ttl, now, value), pebble.NoSync); err != nil {
		return fmt.Errorf("cache: pebble set: %w", err)
	}
	if rand.Float64() < purgeProbability {
		t.maintain(now)
	}
	return nil
}

// Stats iterates the store for entry count and payload size. The tier is a
// bounded local store, so a full scan stays cheap relative to its capacity.
func (t *PebbleTier) Stats() TierStats {
	stats := TierStats{
		Name:   "pebble",
		Hits:   t.hits.Load(),
		Misses: t.misses.Load(),
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return stats
	}
	db := t.db
	t.mu.Unlock()

	iter, err := db.NewIter(nil)
	if err != nil {
		return stats
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		stats.Entries++
		stats.SizeBytes += int64(len(iter.Key()) + len(iter.Value()))
	}
	return stats
}

// Close flushes and closes the underlying store.
func (t *PebbleTier) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.db.Close()
	t.cache.Unref()
	return err
}

// maintain deletes expired rows and, when the store exceeds capacity, trims
// the oldest-lastAccess rows until it fits.
func (t *PebbleTier) maintain(now time.Time) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	db := t.db
	t.mu.Unlock()

	type accessRow struct {
		key        []byte
		lastAccess int64
	}
	var live []accessRow

	iter, err := db.NewIter(nil)
	if err != nil {
		return
	}
	batch := db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		createdAt, ttl, lastAccess, _, decodeErr := decodeRecord(iter.Value())
		key := append([]byte(nil), iter.Key()...)
		if decodeErr != nil || now.Sub(createdAt) > ttl {
			_ = batch.Delete(key, nil)
			continue
		}
		live = append(live, accessRow{key: key, lastAccess: lastAccess.UnixNano()})
	}
	_ = iter.Close()

	if excess := len(live) - t.maxEntries; excess > 0 {
		sort.Slice(live, func(i, j int) bool {
			return live[i].lastAccess < live[j].lastAccess
		})
		for _, row := range live[:excess] {
			_ = batch.Delete(row.key, nil)
		}
	}
	_ = batch.Commit(pebble.NoSync)
}

func encodeRecord(createdAt time.Time, ttl time.Duration, lastAccess time.Time, value []byte) []byte {
	buf := make([]byte, pebbleRecordHeaderSize+len(value))
	buf[0] = pebbleRecordVersion
	binary.BigEndian.PutUint64(buf[1:], uint64(createdAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[9:], uint64(ttl))
	binary.BigEndian.PutUint64(buf[17:], uint64(lastAccess.UnixNano()))
	copy(buf[pebbleRecordHeaderSize:], value)
	return buf
}

func decodeRecord(record []byte) (createdAt time.Time, ttl time.Duration, lastAccess time.Time, value []byte, err error) {
	if len(record) < pebbleRecordHeaderSize || record[0] != pebbleRecordVersion {
		err = fmt.Errorf("cache: invalid record encoding")
		return
	}
	createdAt = time.Unix(0, int64(binary.BigEndian.Uint64(record[1:])))
	ttl = time.Duration(binary.BigEndian.Uint64(record[9:]))
	lastAccess = time.Unix(0, int64(binary.BigEndian.Uint64(record[17:])))
	value = record[pebbleRecordHeaderSize:]
	return
}
