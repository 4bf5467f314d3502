// Package matcher fuses noisy per-image evidence into a confident
// identification of one pre-registered participant. It orchestrates the
// pipeline: extract evidence, correct OCR against the roster, score every
// candidate under the sport's weights, and resolve the outcome with an
// explainable method tag.
package matcher

import (
	"time"

	"bibmatch/cache"
	"bibmatch/evidence"
	"bibmatch/ocr"
	"bibmatch/roster"
	"bibmatch/sport"
)

// Resolution method tags. Every match operation ends in exactly one.
const (
	MethodClearWinner = "clear_winner"
	MethodOverride    = "override"
	MethodAmbiguous   = "ambiguous"
	MethodNoMatch     = "no_match"
)

// Candidate is one participant scored against one image's evidence set.
type Candidate struct {
	Participant roster.Participant  `json:"participant"`
	Score       float64             `json:"score"`
	Confidence  float64             `json:"confidence"`
	Evidence    []evidence.Evidence `json:"evidence,omitempty"`
	Debug       DebugInfo           `json:"debugInfo"`
}

// DebugInfo explains how a candidate earned its score.
type DebugInfo struct {
	EvidenceTypes  []string `json:"evidenceTypes,omitempty"`
	Corrections    []string `json:"corrections,omitempty"`
	Method         string   `json:"resolutionMethod,omitempty"`
	NonNumberScore float64  `json:"nonNumberScore,omitempty"`
}

// Result is the outcome of one matching operation. Best is nil when nothing
// reached the minimum score; that is a valid answer, not an error.
type Result struct {
	Best       *Candidate  `json:"bestMatch,omitempty"`
	Alternates []Candidate `json:"alternates,omitempty"`
	Method     string      `json:"method"`
}

// Request carries everything one matching operation needs. NeighborNumbers
// are the participant numbers already resolved for temporal neighbors of
// this image; each match against one earns the sport's additive proximity
// bonus. Neighbors that resolve later simply contribute nothing on this
// pass.
type Request struct {
	Raw             evidence.RawResult
	Participants    []roster.Participant
	Sport           string
	NeighborNumbers []string
}

// Options wires the matcher's collaborators. Registry and Corrector get
// defaults when nil; Cache and Tracer stay optional.
type Options struct {
	Registry  *sport.Registry
	Corrector *ocr.Corrector
	Cache     *cache.Manager
	Tracer    TraceLogger
}

// Matcher holds no mutable cross-call state beyond its sport-scoped
// configuration, so one instance serves concurrent per-image calls.
type Matcher struct {
	registry  *sport.Registry
	collector *evidence.Collector
	corrector *ocr.Corrector
	cache     *cache.Manager
	tracer    TraceLogger
}

// New builds a Matcher.
func New(opts Options) *Matcher {
	registry := opts.Registry
	if registry == nil {
		registry = sport.NewRegistry()
	}
	corrector := opts.Corrector
	if corrector == nil {
		corrector = ocr.NewCorrector(nil)
	}
	return &Matcher{
		registry:  registry,
		collector: evidence.NewCollector(),
		corrector: corrector,
		cache:     opts.Cache,
		tracer:    opts.Tracer,
	}
}

// Purpose: Run the full matching pipeline for one image.
// Key aspects: Steps are strictly sequential (extract → correct → score →
// resolve); the only side effects are cache writes and trace emission.
// Identical (analysis, roster, sport) triples hit the cache by construction
// of the composite key.
// Upstream: embedding application, one call per analyzed image.
// Downstream: evidence.Collector, ocr.Corrector, scoring and resolution.
func (m *Matcher) FindMatches(req Request) Result {
	cfg := m.registry.Config(req.Sport)

	var cacheKey string
	if m.cache != nil {
		cacheKey = cache.MatchKey(
			cache.HashContent(req.Raw),
			roster.ContentHash(req.Participants),
			req.Sport,
		)
		var cached Result
		if m.cache.GetObject(cacheKey, &cached) {
			return cached
		}
	}

	items := m.collector.Extract(req.Raw)
	items, corrections := m.corrector.CorrectEvidence(items, req.Participants)

	candidates := m.scoreAll(items, req.Participants, req.NeighborNumbers, cfg)
	result := resolve(candidates, cfg)

	if result.Best != nil {
		result.Best.Debug.Corrections = corrections
	}

	m.emitTrace(req, cfg, items, corrections, result)

	if m.cache != nil {
		confidence := 0.0
		if result.Best != nil {
			confidence = result.Best.Confidence
		}
		_ = m.cache.SetObject(cacheKey, result, confidence)
	}
	return result
}

func (m *Matcher) emitTrace(req Request, cfg sport.MatchingConfig, items []evidence.Evidence, corrections []string, result Result) {
	if m.tracer == nil {
		return
	}
	trace := Trace{
		Timestamp:     time.Now().UTC(),
		Sport:         req.Sport,
		Method:        result.Method,
		EvidenceCount: len(items),
		Candidates:    len(req.Participants),
		Corrections:   corrections,
	}
	if result.Best != nil {
		trace.BestNumber = result.Best.Participant.Number
		trace.BestScore = result.Best.Score
		trace.Confidence = result.Best.Confidence
		if len(result.Alternates) > 0 {
			trace.Gap = result.Best.Score - result.Alternates[0].Score
		}
	}
	m.tracer.Enqueue(trace)
}
