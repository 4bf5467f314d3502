// Package sport supplies per-sport matching profiles: evidence weights,
// resolution thresholds, the multi-evidence bonus, and the temporal windows
// used by burst clustering. Profiles are explicit configuration objects; the
// registry replaces the module-level singletons a naive port would carry.
package sport

import (
	"log"
	"sync"
	"time"

	"bibmatch/strutil"
)

// DefaultSport is the fallback profile for unknown sport codes.
const DefaultSport = "motorsport"

// Weights holds the per-evidence-type importance used by the weighted sum.
type Weights struct {
	RaceNumber  float64
	PersonName  float64
	Sponsor     float64
	Team        float64
	Category    float64
	PlateNumber float64
}

// Thresholds holds the score gates driving the resolution policy.
type Thresholds struct {
	// MinimumScore is the floor below which no candidate is accepted at all.
	MinimumScore float64
	// ClearWinner is the minimum gap between first and second place for an
	// unambiguous accept.
	ClearWinner float64
	// NameSimilarity gates fuzzy string matches on names/sponsors/teams.
	NameSimilarity float64
	// LowOCRConfidence marks number evidence weak enough for an override.
	LowOCRConfidence float64
	// StrongNonNumberEvidence is the non-number weighted score a rival needs
	// to override a weak number read.
	StrongNonNumberEvidence float64
}

// MatchingConfig is the complete profile for one sport. File-based overrides
// arrive as a Patch, not by unmarshaling this struct directly.
type MatchingConfig struct {
	Weights            Weights
	Thresholds         Thresholds
	MultiEvidenceBonus float64
	ClusterWindow      time.Duration
	BurstThreshold     time.Duration
	ProximityBonus     float64
}

// builtinProfiles reflect domain reality: running trusts the bib number and
// little else; rally weights person names higher than motorsport because
// co-driver call-signs are a strong signal; cycling leans on trade-team
// sponsor text.
func builtinProfiles() map[string]MatchingConfig {
	return map[string]MatchingConfig{
		"motorsport": {
			Weights:            Weights{RaceNumber: 10, PersonName: 5, Sponsor: 3, Team: 4, Category: 2, PlateNumber: 3},
			Thresholds:         Thresholds{MinimumScore: 5, ClearWinner: 3, NameSimilarity: 0.85, LowOCRConfidence: 0.5, StrongNonNumberEvidence: 6},
			MultiEvidenceBonus: 0.2,
			ClusterWindow:      3 * time.Second,
			BurstThreshold:     300 * time.Millisecond,
			ProximityBonus:     2,
		},
		"running": {
			Weights:            Weights{RaceNumber: 15, PersonName: 2, Sponsor: 1, Team: 1, Category: 2},
			Thresholds:         Thresholds{MinimumScore: 6, ClearWinner: 4, NameSimilarity: 0.9, LowOCRConfidence: 0.4, StrongNonNumberEvidence: 8},
			MultiEvidenceBonus: 0.1,
			ClusterWindow:      2 * time.Second,
			BurstThreshold:     100 * time.Millisecond,
			ProximityBonus:     1.5,
		},
		"cycling": {
			Weights:            Weights{RaceNumber: 12, PersonName: 4, Sponsor: 4, Team: 5, Category: 2},
			Thresholds:         Thresholds{MinimumScore: 5, ClearWinner: 3, NameSimilarity: 0.85, LowOCRConfidence: 0.5, StrongNonNumberEvidence: 7},
			MultiEvidenceBonus: 0.15,
			ClusterWindow:      2 * time.Second,
			BurstThreshold:     200 * time.Millisecond,
			ProximityBonus:     2,
		},
		"motocross": {
			Weights:            Weights{RaceNumber: 11, PersonName: 4, Sponsor: 4, Team: 3, Category: 3, PlateNumber: 2},
			Thresholds:         Thresholds{MinimumScore: 5, ClearWinner: 3, NameSimilarity: 0.85, LowOCRConfidence: 0.5, StrongNonNumberEvidence: 6},
			MultiEvidenceBonus: 0.2,
			ClusterWindow:      3 * time.Second,
			BurstThreshold:     300 * time.Millisecond,
			ProximityBonus:     2,
		},
		"rally": {
			Weights:            Weights{RaceNumber: 9, PersonName: 7, Sponsor: 3, Team: 4, Category: 3, PlateNumber: 5},
			Thresholds:         Thresholds{MinimumScore: 5, ClearWinner: 3, NameSimilarity: 0.8, LowOCRConfidence: 0.5, StrongNonNumberEvidence: 6},
			MultiEvidenceBonus: 0.25,
			ClusterWindow:      4 * time.Second,
			BurstThreshold:     500 * time.Millisecond,
			ProximityBonus:     2.5,
		},
		"generic": {
			Weights:            Weights{RaceNumber: 10, PersonName: 4, Sponsor: 2, Team: 3, Category: 2, PlateNumber: 2},
			Thresholds:         Thresholds{MinimumScore: 5, ClearWinner: 3, NameSimilarity: 0.85, LowOCRConfidence: 0.5, StrongNonNumberEvidence: 6},
			MultiEvidenceBonus: 0.15,
			ClusterWindow:      3 * time.Second,
			BurstThreshold:     300 * time.Millisecond,
			ProximityBonus:     2,
		},
	}
}

// Registry holds the sport profiles and supports partial runtime overrides.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]MatchingConfig
	quiet    bool
}

// NewRegistry builds a registry preloaded with the built-in profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: builtinProfiles()}
}

// SetQuiet suppresses the unknown-sport warning. Bulk-initialization contexts
// (importing hundreds of event presets) enable this to avoid log spam.
func (r *Registry) SetQuiet(quiet bool) {
	r.mu.Lock()
	r.quiet = quiet
	r.mu.Unlock()
}

// Known reports whether a profile exists for the code.
func (r *Registry) Known(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.profiles[strutil.NormalizeLower(code)]
	return ok
}

// Config returns the profile for a sport code. Unknown codes fall back to the
// motorsport default with a logged warning; matching must never fail because
// of a misconfigured sport.
func (r *Registry) Config(code string) MatchingConfig {
	key := strutil.NormalizeLower(code)
	r.mu.RLock()
	cfg, ok := r.profiles[key]
	quiet := r.quiet
	r.mu.RUnlock()
	if ok {
		return cfg
	}
	if !quiet {
		log.Printf("Sport: unknown sport %q, falling back to %s profile", code, DefaultSport)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[DefaultSport]
}

// Patch is a partial profile update. Nil fields leave the existing value
// untouched, so remote overrides can ship only the knobs they care about.
type Patch struct {
	RaceNumberWeight  *float64 `yaml:"race_number_weight,omitempty"`
	PersonNameWeight  *float64 `yaml:"person_name_weight,omitempty"`
	SponsorWeight     *float64 `yaml:"sponsor_weight,omitempty"`
	TeamWeight        *float64 `yaml:"team_weight,omitempty"`
	CategoryWeight    *float64 `yaml:"category_weight,omitempty"`
	PlateNumberWeight *float64 `yaml:"plate_number_weight,omitempty"`

	MinimumScore            *float64 `yaml:"minimum_score,omitempty"`
	ClearWinner             *float64 `yaml:"clear_winner,omitempty"`
	NameSimilarity          *float64 `yaml:"name_similarity,omitempty"`
	LowOCRConfidence        *float64 `yaml:"low_ocr_confidence,omitempty"`
	StrongNonNumberEvidence *float64 `yaml:"strong_non_number_evidence,omitempty"`

	MultiEvidenceBonus *float64 `yaml:"multi_evidence_bonus,omitempty"`
	ClusterWindowMS    *int     `yaml:"cluster_window_ms,omitempty"`
	BurstThresholdMS   *int     `yaml:"burst_threshold_ms,omitempty"`
	ProximityBonus     *float64 `yaml:"proximity_bonus,omitempty"`
}

// Update merges a partial patch into the named profile. A previously unknown
// code starts from the default profile so a patch alone yields a complete,
// usable configuration.
func (r *Registry) Update(code string, patch Patch) {
	key := strutil.NormalizeLower(code)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.profiles[key]
	if !ok {
		cfg = r.profiles[DefaultSport]
	}
	applyPatch(&cfg, patch)
	r.profiles[key] = cfg
}

// Import applies a bulk override set (remote config service shape) without
// per-code warnings.
func (r *Registry) Import(overrides map[string]Patch) {
	for code, patch := range overrides {
		r.Update(code, patch)
	}
}

func applyPatch(cfg *MatchingConfig, p Patch) {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&cfg.Weights.RaceNumber, p.RaceNumberWeight)
	setF(&cfg.Weights.PersonName, p.PersonNameWeight)
	setF(&cfg.Weights.Sponsor, p.SponsorWeight)
	setF(&cfg.Weights.Team, p.TeamWeight)
	setF(&cfg.Weights.Category, p.CategoryWeight)
	setF(&cfg.Weights.PlateNumber, p.PlateNumberWeight)

	setF(&cfg.Thresholds.MinimumScore, p.MinimumScore)
	setF(&cfg.Thresholds.ClearWinner, p.ClearWinner)
	setF(&cfg.Thresholds.NameSimilarity, p.NameSimilarity)
	setF(&cfg.Thresholds.LowOCRConfidence, p.LowOCRConfidence)
	setF(&cfg.Thresholds.StrongNonNumberEvidence, p.StrongNonNumberEvidence)

	setF(&cfg.MultiEvidenceBonus, p.MultiEvidenceBonus)
	if p.ClusterWindowMS != nil {
		cfg.ClusterWindow = time.Duration(*p.ClusterWindowMS) * time.Millisecond
	}
	if p.BurstThresholdMS != nil {
		cfg.BurstThreshold = time.Duration(*p.BurstThresholdMS) * time.Millisecond
	}
	setF(&cfg.ProximityBonus, p.ProximityBonus)
}
