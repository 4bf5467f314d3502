// Package cache implements the three-tier result cache: a fast in-process
// LRU, a local persistent Pebble store, and an optional shared remote tier.
// Tiers sit behind one small interface so the promotion/degradation logic
// never depends on a concrete storage engine.
package cache

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Tier is the minimal contract every cache level implements. Get returns the
// stored bytes and whether the key was present and unexpired. Set stores the
// value with a TTL; a tier may ignore a non-positive TTL and apply its own
// default. Implementations must be safe for concurrent use.
type Tier interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Stats() TierStats
	Close() error
}

// TierStats is the per-tier observability surface.
type TierStats struct {
	Name      string
	Entries   int
	SizeBytes int64
	Hits      uint64
	Misses    uint64
}

// HitRate returns hits/(hits+misses), or 0 before any traffic.
func (s TierStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s TierStats) String() string {
	return fmt.Sprintf("%s: %s entries, %s, %.1f%% hit rate",
		s.Name,
		humanize.Comma(int64(s.Entries)),
		humanize.Bytes(uint64(s.SizeBytes)),
		s.HitRate()*100)
}
