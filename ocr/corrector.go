package ocr

import (
	"fmt"
	"sort"
	"strings"

	lev "github.com/agnivade/levenshtein"

	"bibmatch/evidence"
	"bibmatch/roster"
	"bibmatch/strutil"
)

const (
	// correctionPenalty discounts every corrected reading relative to a direct
	// read. Strictly below 1 so a correction can never outrank its original at
	// equal pattern confidence.
	correctionPenalty = 0.9

	// fallbackConfidence stands in for a pattern confidence on the
	// edit-distance fallback path, where no confusion entry vouches for the
	// specific substitution.
	fallbackConfidence = 0.65
)

// Corrector generates corrected race-number evidence from a confusion table,
// validated against the roster's known numbers. Original evidence is always
// preserved; corrections are appended with a `_corrected` source tag. The
// Corrector holds no per-call state, so one instance serves concurrent
// per-image pipelines.
type Corrector struct {
	table *Table
}

// NewCorrector builds a Corrector around the given table. A nil table gets
// the shipped default.
func NewCorrector(table *Table) *Corrector {
	if table == nil {
		table = DefaultTable()
	}
	return &Corrector{table: table}
}

// AddPattern appends a confusion pattern at runtime (future learned
// patterns). Shipped operation is static.
func (c *Corrector) AddPattern(from, to string, confidence float64) {
	c.table.Add(from, to, confidence)
}

// candidate is one proposed corrected value before roster validation.
type candidate struct {
	value      string
	confidence float64
	reason     string
}

// Purpose: Append roster-validated corrected variants of race-number evidence.
// Key aspects: Single-char and multi-char confusion substitutions first; an
// insert/delete distance-1 search over known numbers only when no pattern
// candidate validates. Human-readable correction strings are returned
// alongside the evidence so concurrent calls cannot see each other's
// corrections.
// Upstream: matcher pipeline, after evidence extraction.
// Downstream: Table lookups, IndelDistance, roster.KnownNumbers.
func (c *Corrector) CorrectEvidence(items []evidence.Evidence, participants []roster.Participant) ([]evidence.Evidence, []string) {
	known := roster.KnownNumbers(participants)

	out := make([]evidence.Evidence, len(items), len(items)+4)
	copy(out, items)
	var corrections []string

	for _, item := range items {
		if item.Type != evidence.TypeRaceNumber {
			continue
		}
		value := strutil.NormalizeUpper(item.Value)
		if value == "" {
			continue
		}

		accepted := c.patternCandidates(value, known)
		if len(accepted) == 0 && len(value) > 1 {
			accepted = c.fallbackCandidates(value, known)
		}

		for _, cand := range accepted {
			corrected := evidence.Evidence{
				Type:       evidence.TypeRaceNumber,
				Value:      cand.value,
				Confidence: item.Confidence * cand.confidence * correctionPenalty,
				Quality:    item.Quality,
				Source:     evidence.SourceOCRCorrected,
			}
			out = append(out, corrected)
			corrections = append(corrections, fmt.Sprintf("%s → %s (%s)", value, cand.value, cand.reason))
		}
	}
	return out, corrections
}

// patternCandidates generates confusion-table substitutions of value and
// keeps only those present in the known-number set.
func (c *Corrector) patternCandidates(value string, known map[string]struct{}) []candidate {
	index := map[string]int{}
	var accepted []candidate

	// The same corrected value can arise from both a single-character and a
	// multi-character pattern; the higher-confidence derivation wins.
	keep := func(corrected string, conf float64, reason string) {
		if corrected == value {
			return
		}
		if _, ok := known[corrected]; !ok {
			return
		}
		if i, ok := index[corrected]; ok {
			if conf > accepted[i].confidence {
				accepted[i].confidence = conf
				accepted[i].reason = reason
			}
			return
		}
		index[corrected] = len(accepted)
		accepted = append(accepted, candidate{value: corrected, confidence: conf, reason: reason})
	}

	// Single-character substitutions at every position.
	runes := []rune(value)
	for i, r := range runes {
		for _, alt := range c.table.Alternatives(string(r)) {
			corrected := string(runes[:i]) + alt.Value + string(runes[i+1:])
			keep(corrected, alt.Confidence, fmt.Sprintf("confusion %c→%s", r, alt.Value))
		}
	}

	// Multi-character substring substitutions.
	for from, alts := range c.table.MultiPatterns() {
		idx := strings.Index(value, from)
		if idx < 0 {
			continue
		}
		for _, alt := range alts {
			corrected := value[:idx] + alt.Value + value[idx+len(from):]
			keep(corrected, alt.Confidence, fmt.Sprintf("pattern %s→%s", from, alt.Value))
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].confidence > accepted[j].confidence
	})
	return accepted
}

// fallbackCandidates searches known numbers whose length differs by at most
// one for an insert/delete distance of exactly 1. Only known numbers are ever
// returned, same as the pattern path.
func (c *Corrector) fallbackCandidates(value string, known map[string]struct{}) []candidate {
	var accepted []candidate
	for num := range known {
		diff := len(num) - len(value)
		if diff < -1 || diff > 1 {
			continue
		}
		if IndelDistance(value, num) != 1 {
			continue
		}
		accepted = append(accepted, candidate{
			value:      num,
			confidence: fallbackConfidence,
			reason:     "edit distance 1",
		})
	}
	// Map iteration order is random; rank by general edit distance, then
	// lexically, so repeated runs log identical corrections.
	sort.SliceStable(accepted, func(i, j int) bool {
		di := lev.ComputeDistance(value, accepted[i].value)
		dj := lev.ComputeDistance(value, accepted[j].value)
		if di != dj {
			return di < dj
		}
		return accepted[i].value < accepted[j].value
	})
	return accepted
}
