// Package roster defines the read-only participant records the matching
// pipeline resolves against. Rosters are loaded by the embedding application
// (CSV, preset database); this package only consumes the loaded shape.
package roster

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"

	"bibmatch/strutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Participant is one start-list entry. Number uniqueness is NOT guaranteed:
// the same number may appear in different categories, so callers must
// disambiguate duplicates with non-number evidence.
type Participant struct {
	Number   string   `json:"number"`
	Names    []string `json:"names,omitempty"` // driver, co-driver, third, fourth
	Team     string   `json:"team,omitempty"`
	Sponsors []string `json:"sponsors,omitempty"`
	Category string   `json:"category,omitempty"`
	Plate    string   `json:"plate,omitempty"`
}

// DisplayName returns the primary name for logging, falling back to the
// number when no name is known.
func (p Participant) DisplayName() string {
	for _, n := range p.Names {
		if strings.TrimSpace(n) != "" {
			return strings.TrimSpace(n)
		}
	}
	return "#" + p.Number
}

// NameCount returns how many non-empty name fields the entry carries. Team
// sports (motorsport crews) typically carry more than one.
func (p Participant) NameCount() int {
	count := 0
	for _, n := range p.Names {
		if strings.TrimSpace(n) != "" {
			count++
		}
	}
	return count
}

// KnownNumbers collects the normalized number of every participant into a
// set. The OCR corrector uses this as its validation oracle: a correction
// candidate that is not a known number is never emitted.
func KnownNumbers(participants []Participant) map[string]struct{} {
	known := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		num := strutil.NormalizeUpper(p.Number)
		if num == "" {
			continue
		}
		known[num] = struct{}{}
	}
	return known
}

// ContentHash returns a stable hex digest of the full roster content. Used as
// a cache key component so any roster edit implicitly invalidates cached
// match results without explicit invalidation.
func ContentHash(participants []Participant) string {
	payload, err := json.Marshal(participants)
	if err != nil {
		// Marshal of plain structs cannot fail; keep a defined key anyway.
		payload = []byte(fmt.Sprintf("roster:%d", len(participants)))
	}
	return fmt.Sprintf("%016x", xxh3.Hash(payload))
}
