package cache

import (
	"fmt"
	"log"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"

	"bibmatch/internal/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sharedMinConfidence gates shared-tier writes: only high-confidence results
// are published so noisy guesses never pollute state other machines read.
const sharedMinConfidence = 0.8

// Key prefixes. Match keys embed content hashes of both inputs plus the
// sport code, so changed inputs miss naturally and nothing ever needs
// explicit invalidation.
const (
	matchKeyPrefix   = "match|"
	rosterKeyPrefix  = "roster|"
	patternKeyPrefix = "patterns|"
)

// Manager layers the tiers: read path checks fast → local → shared,
// promoting hits upward; write path is write-through to fast and local, with
// a confidence-gated shared write. A missing or failed tier degrades to the
// next one down and is never fatal.
type Manager struct {
	fast   Tier
	local  Tier
	shared Tier

	fastTTL   time.Duration
	localTTL  time.Duration
	sharedTTL time.Duration

	degraded *ratelimit.Counter
}

// ManagerOptions wires concrete tiers. Fast is required; Local and Shared
// are optional and simply skipped when nil.
type ManagerOptions struct {
	Fast   Tier
	Local  Tier
	Shared Tier

	FastTTL   time.Duration
	LocalTTL  time.Duration
	SharedTTL time.Duration
}

// NewManager assembles the tiered cache.
func NewManager(opts ManagerOptions) *Manager {
	fast := opts.Fast
	if fast == nil {
		fast = NewMemoryTier(MemoryOptions{})
	}
	return &Manager{
		fast:      fast,
		local:     opts.Local,
		shared:    opts.Shared,
		fastTTL:   opts.FastTTL,
		localTTL:  opts.LocalTTL,
		sharedTTL: opts.SharedTTL,
		degraded:  ratelimit.NewCounter(time.Minute),
	}
}

// MatchKey builds the composite key for a match result: content hash of the
// analysis result, content hash of the roster, and the sport code.
func MatchKey(analysisHash, rosterHash, sportCode string) string {
	return matchKeyPrefix + analysisHash + "|" + rosterHash + "|" + sportCode
}

// RosterKey names a cached participant roster by content hash.
func RosterKey(hash string) string {
	return rosterKeyPrefix + hash
}

// PatternKey names the learned OCR pattern set for a sport.
func PatternKey(sportCode string) string {
	return patternKeyPrefix + sportCode
}

// HashContent returns a stable hex digest of any JSON-serializable value,
// for use as a key component.
func HashContent(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", v))
	}
	return fmt.Sprintf("%016x", xxh3.Hash(payload))
}

// Purpose: Read a value through the tier stack.
// Key aspects: Promotes local hits to fast, and shared hits to both lower
// tiers, so repeat reads settle into the cheapest tier.
// Upstream: matcher cache lookups.
// Downstream: Tier.Get/Set per configured tier.
func (m *Manager) Get(key string) ([]byte, bool) {
	if value, ok := m.fast.Get(key); ok {
		return value, true
	}
	if m.local != nil {
		if value, ok := m.local.Get(key); ok {
			m.setQuiet(m.fast, key, value, m.fastTTL)
			return value, true
		}
	}
	if m.shared != nil {
		if value, ok := m.shared.Get(key); ok {
			if m.local != nil {
				m.setQuiet(m.local, key, value, m.localTTL)
			}
			m.setQuiet(m.fast, key, value, m.fastTTL)
			return value, true
		}
	}
	return nil, false
}

// Purpose: Write a value through the tier stack.
// Key aspects: Fast and local writes are synchronous write-through; the
// shared write only happens for confidence above the publication gate and
// its failure never propagates.
// Upstream: matcher cache stores.
// Downstream: Tier.Set per configured tier.
func (m *Manager) Set(key string, value []byte, confidence float64) {
	m.setQuiet(m.fast, key, value, m.fastTTL)
	if m.local != nil {
		m.setQuiet(m.local, key, value, m.localTTL)
	}
	if m.shared != nil && confidence > sharedMinConfidence {
		m.setQuiet(m.shared, key, value, m.sharedTTL)
	}
}

// SetObject serializes v and writes it through the stack.
func (m *Manager) SetObject(key string, v any, confidence float64) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	m.Set(key, payload, confidence)
	return nil
}

// GetObject reads and deserializes a value into out.
func (m *Manager) GetObject(key string, out any) bool {
	payload, ok := m.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		if total, allowed := m.degraded.Inc(); allowed {
			log.Printf("Cache: corrupt entry for %q dropped (%v, %d total)", key, err, total)
		}
		return false
	}
	return true
}

// Stats returns the per-tier statistics in fast→shared order.
func (m *Manager) Stats() []TierStats {
	stats := []TierStats{m.fast.Stats()}
	if m.local != nil {
		stats = append(stats, m.local.Stats())
	}
	if m.shared != nil {
		stats = append(stats, m.shared.Stats())
	}
	return stats
}

// Close closes every tier, keeping the first error.
func (m *Manager) Close() error {
	err := m.fast.Close()
	if m.local != nil {
		if cerr := m.local.Close(); err == nil {
			err = cerr
		}
	}
	if m.shared != nil {
		if cerr := m.shared.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// setQuiet absorbs tier write failures into a throttled log line; cache
// writes are best-effort by contract.
func (m *Manager) setQuiet(tier Tier, key string, value []byte, ttl time.Duration) {
	if err := tier.Set(key, value, ttl); err != nil {
		if total, allowed := m.degraded.Inc(); allowed {
			log.Printf("Cache: tier write for %q failed (%v), continuing (%d total)", key, err, total)
		}
	}
}
