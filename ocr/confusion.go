// Package ocr corrects systematic character-recognition errors in race-number
// evidence. Corrections are proposed from a static confusion table and are
// only ever emitted when the corrected value exists in the supplied roster,
// so the corrector can never invent an unknown number.
package ocr

import (
	"sync"

	"bibmatch/strutil"
)

// Alternative is one possible replacement for a confused pattern, with the
// hand-tuned confidence that this particular misread occurs.
type Alternative struct {
	Value      string
	Confidence float64
}

// Table maps an error-prone character or substring to its likely true
// readings. The default table is fixed; Add exists so a future learning loop
// can append patterns at runtime.
type Table struct {
	mu       sync.RWMutex
	patterns map[string][]Alternative
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{patterns: make(map[string][]Alternative)}
}

// Add appends a pattern. Confidence is clamped to the [0.6, 0.95] band every
// shipped pattern lives in; values outside that band indicate a tuning error
// upstream rather than a legitimate new pattern.
func (t *Table) Add(from, to string, confidence float64) {
	from = strutil.NormalizeUpper(from)
	to = strutil.NormalizeUpper(to)
	if from == "" || to == "" || from == to {
		return
	}
	if confidence < 0.6 {
		confidence = 0.6
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, alt := range t.patterns[from] {
		if alt.Value == to {
			return
		}
	}
	t.patterns[from] = append(t.patterns[from], Alternative{Value: to, Confidence: confidence})
}

// Alternatives returns the replacement candidates for a pattern, or nil.
func (t *Table) Alternatives(from string) []Alternative {
	t.mu.RLock()
	defer t.mu.RUnlock()
	alts := t.patterns[from]
	if len(alts) == 0 {
		return nil
	}
	out := make([]Alternative, len(alts))
	copy(out, alts)
	return out
}

// MultiPatterns returns every pattern whose key is longer than one character,
// for substring substitution passes.
func (t *Table) MultiPatterns() map[string][]Alternative {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string][]Alternative)
	for from, alts := range t.patterns {
		if len(from) <= 1 {
			continue
		}
		copied := make([]Alternative, len(alts))
		copy(copied, alts)
		out[from] = copied
	}
	return out
}

// DefaultTable builds the shipped confusion table: single-character
// digit/letter look-alikes, multi-digit swaps seen on racing numerals, and
// generated digit-reversal pairs for every two-digit combination.
func DefaultTable() *Table {
	t := NewTable()

	singles := []struct {
		from, to string
		conf     float64
	}{
		{"0", "O", 0.9}, {"0", "D", 0.6}, {"0", "Q", 0.6},
		{"O", "0", 0.9}, {"D", "0", 0.6}, {"Q", "0", 0.6},
		{"1", "I", 0.9}, {"1", "7", 0.6}, {"1", "|", 0.9},
		{"I", "1", 0.9}, {"L", "1", 0.65}, {"|", "1", 0.9},
		{"6", "G", 0.85}, {"6", "8", 0.7}, {"6", "5", 0.65},
		{"G", "6", 0.85},
		{"8", "B", 0.85}, {"8", "3", 0.7}, {"8", "6", 0.7},
		{"B", "8", 0.85}, {"3", "8", 0.7},
		{"5", "S", 0.85}, {"5", "6", 0.65},
		{"S", "5", 0.85},
		{"2", "Z", 0.8}, {"Z", "2", 0.8},
		{"4", "A", 0.7}, {"A", "4", 0.7},
		{"7", "T", 0.65}, {"T", "7", 0.65},
	}
	for _, p := range singles {
		t.Add(p.from, p.to, p.conf)
	}

	multis := []struct {
		from, to string
		conf     float64
	}{
		{"46", "48", 0.8}, {"46", "16", 0.7}, {"46", "86", 0.65},
		{"48", "46", 0.8},
		{"168", "186", 0.75}, {"168", "148", 0.7}, {"168", "108", 0.7},
		{"186", "168", 0.75},
		{"AL", "A1", 0.75}, {"A1", "AL", 0.6},
	}
	for _, p := range multis {
		t.Add(p.from, p.to, p.conf)
	}

	// Digit reversals: 12<->21 ... 89<->98. Add respects existing entries, so
	// the hand-tuned pairs above keep their confidences.
	for a := '1'; a <= '9'; a++ {
		for b := '0'; b <= '9'; b++ {
			if a == b {
				continue
			}
			t.Add(string(a)+string(b), string(b)+string(a), 0.7)
		}
	}

	return t
}
