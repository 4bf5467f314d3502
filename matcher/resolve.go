package matcher

import (
	"sort"

	"bibmatch/sport"
)

// maxAlternates bounds the ranked alternates list returned to callers; the
// long tail of near-zero candidates carries no information.
const maxAlternates = 5

// ambiguousConfidenceCap is the ceiling applied to the best candidate's
// confidence when resolution ends ambiguous. Downstream consumers treat
// anything at or under it as "needs review".
const ambiguousConfidenceCap = 0.5

// Purpose: Turn the scored candidate list into a single explainable outcome.
// Key aspects: The override check runs before the clear-winner check: a
// weak-OCR number read must not win on gap alone when a rival carries strong
// non-number evidence. No candidate above the minimum score yields a valid
// no_match result, never an error.
// Upstream: FindMatches.
// Downstream: none.
func resolve(candidates []scoredCandidate, cfg sport.MatchingConfig) Result {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) == 0 || candidates[0].Score < cfg.Thresholds.MinimumScore {
		return Result{
			Method:     MethodNoMatch,
			Alternates: alternates(candidates, -1),
		}
	}

	if winner, ok := overrideWinner(candidates, cfg); ok {
		best := candidates[winner].Candidate
		best.Debug.Method = MethodOverride
		return Result{
			Best:       &best,
			Alternates: alternates(candidates, winner),
			Method:     MethodOverride,
		}
	}

	top := candidates[0]
	gap := top.Score
	if len(candidates) > 1 {
		gap = top.Score - candidates[1].Score
	}
	if len(candidates) == 1 || gap > cfg.Thresholds.ClearWinner {
		best := top.Candidate
		best.Debug.Method = MethodClearWinner
		return Result{
			Best:       &best,
			Alternates: alternates(candidates, 0),
			Method:     MethodClearWinner,
		}
	}

	best := top.Candidate
	best.Debug.Method = MethodAmbiguous
	if best.Confidence > ambiguousConfidenceCap {
		best.Confidence = ambiguousConfidenceCap
	}
	return Result{
		Best:       &best,
		Alternates: alternates(candidates, 0),
		Method:     MethodAmbiguous,
	}
}

// overrideWinner looks for the evidence-conflict case: the top candidate was
// identified through a low-confidence number read while another candidate
// holds strong non-number evidence. Returns the rival's index when the
// override applies.
func overrideWinner(candidates []scoredCandidate, cfg sport.MatchingConfig) (int, bool) {
	top := candidates[0]
	if !top.matchedNumber || top.numberConf >= cfg.Thresholds.LowOCRConfidence {
		return 0, false
	}
	bestRival := -1
	bestNonNumber := cfg.Thresholds.StrongNonNumberEvidence
	for i := 1; i < len(candidates); i++ {
		if candidates[i].nonNumber > bestNonNumber {
			bestRival = i
			bestNonNumber = candidates[i].nonNumber
		}
	}
	if bestRival < 0 {
		return 0, false
	}
	return bestRival, true
}

// alternates returns the ranked candidates excluding the winner (index -1
// means no winner), capped.
func alternates(candidates []scoredCandidate, winner int) []Candidate {
	var out []Candidate
	for i, c := range candidates {
		if i == winner {
			continue
		}
		out = append(out, c.Candidate)
		if len(out) == maxAlternates {
			break
		}
	}
	return out
}
