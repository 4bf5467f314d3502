package matcher

import (
	"sort"
	"strings"

	lev "github.com/agnivade/levenshtein"

	"bibmatch/evidence"
	"bibmatch/roster"
	"bibmatch/sport"
	"bibmatch/strutil"
)

// highConfidenceExit is the normalized confidence at which remaining
// candidates may be skipped. Skipping additionally requires the leading score
// to have reached the attainable upper bound, so no later candidate can
// mathematically outscore it.
const highConfidenceExit = 0.95

// scoredCandidate carries resolution inputs that are not part of the public
// Candidate shape.
type scoredCandidate struct {
	Candidate
	matchedNumber bool
	numberConf    float64
	nonNumber     float64
}

// Purpose: Score every participant against the evidence set.
// Key aspects: Participants are pre-sorted by a cheap number heuristic so the
// likely winner is evaluated first; early exit is disabled whenever the top
// race-number confidence is below the override threshold (an override
// scenario could involve a later, lower-scoring candidate).
// Upstream: FindMatches.
// Downstream: scoreOne, presortParticipants.
func (m *Matcher) scoreAll(items []evidence.Evidence, participants []roster.Participant, neighborNumbers []string, cfg sport.MatchingConfig) []scoredCandidate {
	if len(items) == 0 || len(participants) == 0 {
		return nil
	}

	neighborSet := make(map[string]struct{}, len(neighborNumbers))
	for _, n := range neighborNumbers {
		neighborSet[strutil.NormalizeUpper(n)] = struct{}{}
	}

	ordered := presortParticipants(participants, recognizedNumber(items))
	bound := attainableBound(items, cfg, len(neighborSet) > 0)

	topNumberConf := 0.0
	for _, item := range items {
		if item.Type == evidence.TypeRaceNumber && item.Confidence > topNumberConf {
			topNumberConf = item.Confidence
		}
	}
	earlyExitAllowed := topNumberConf >= cfg.Thresholds.LowOCRConfidence

	// Rosters may carry the same number in different categories; a duplicate
	// can tie the leader, so the exit is withheld for shared numbers.
	numberCount := make(map[string]int, len(participants))
	for _, p := range participants {
		numberCount[strutil.NormalizeUpper(p.Number)]++
	}

	var out []scoredCandidate
	for _, p := range ordered {
		s := scoreOne(p, items, neighborSet, cfg, bound)
		if s.Score <= 0 {
			continue
		}
		out = append(out, s)
		if earlyExitAllowed && s.Confidence >= highConfidenceExit && s.Score >= bound &&
			numberCount[strutil.NormalizeUpper(p.Number)] <= 1 {
			break
		}
	}
	return out
}

// recognizedNumber returns the highest-weighted directly-read race number, or
// "" when the image produced none.
func recognizedNumber(items []evidence.Evidence) string {
	for _, item := range items {
		if item.Type == evidence.TypeRaceNumber && item.Source == evidence.SourceOCR {
			return item.Value
		}
	}
	return ""
}

// presortParticipants orders candidates cheaply before full scoring: exact
// race-number matches first, then ascending edit distance to the recognized
// number. Without a recognized number the roster order is kept.
func presortParticipants(participants []roster.Participant, recognized string) []roster.Participant {
	ordered := make([]roster.Participant, len(participants))
	copy(ordered, participants)
	if recognized == "" {
		return ordered
	}
	distance := func(p roster.Participant) int {
		num := strutil.NormalizeUpper(p.Number)
		if num == recognized {
			return 0
		}
		return lev.ComputeDistance(recognized, num)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return distance(ordered[i]) < distance(ordered[j])
	})
	return ordered
}

// attainableBound is the maximum weighted score any single candidate could
// reach against this evidence set, plus the multi-evidence bonus when two or
// more types are present and the proximity bonus when any neighbor hints
// exist. Confidence normalizes against it, and the early exit relies on it
// being a true upper bound. Race number, plate, and category match one exact
// value per candidate, so alternative values of those types (an original read
// and its corrections) contribute only the strongest value; free-text items
// stack, since several driver strings or sponsor boards can all match the
// same participant.
func attainableBound(items []evidence.Evidence, cfg sport.MatchingConfig, hasNeighbors bool) float64 {
	exclusive := make(map[evidence.Type]map[string]float64)
	types := make(map[evidence.Type]struct{})
	bound := 0.0
	for _, item := range items {
		contribution := typeWeight(item.Type, cfg.Weights) * item.Confidence
		if contribution <= 0 {
			continue
		}
		types[item.Type] = struct{}{}
		switch item.Type {
		case evidence.TypeRaceNumber, evidence.TypePlateNumber, evidence.TypeCategory:
			byValue := exclusive[item.Type]
			if byValue == nil {
				byValue = make(map[string]float64)
				exclusive[item.Type] = byValue
			}
			byValue[strutil.NormalizeUpper(item.Value)] += contribution
		default:
			bound += contribution
		}
	}
	for _, byValue := range exclusive {
		best := 0.0
		for _, v := range byValue {
			if v > best {
				best = v
			}
		}
		bound += best
	}
	if len(types) >= 2 {
		bound *= 1 + cfg.MultiEvidenceBonus
	}
	if hasNeighbors {
		bound += cfg.ProximityBonus
	}
	return bound
}

// scoreOne computes the weighted evidence sum for one participant.
func scoreOne(p roster.Participant, items []evidence.Evidence, neighborSet map[string]struct{}, cfg sport.MatchingConfig, bound float64) scoredCandidate {
	s := scoredCandidate{Candidate: Candidate{Participant: p}}
	matchedTypes := make(map[evidence.Type]struct{})

	for _, item := range items {
		sim := similarity(item, p, cfg.Thresholds.NameSimilarity)
		if sim <= 0 {
			continue
		}
		contribution := typeWeight(item.Type, cfg.Weights) * sim * item.Confidence
		if contribution <= 0 {
			continue
		}
		s.Score += contribution
		matchedTypes[item.Type] = struct{}{}

		matched := item
		matched.Score = contribution
		s.Evidence = append(s.Evidence, matched)

		if item.Type == evidence.TypeRaceNumber {
			s.matchedNumber = true
			if item.Confidence > s.numberConf {
				s.numberConf = item.Confidence
			}
		} else {
			s.nonNumber += contribution
		}
	}
	if s.Score <= 0 {
		return s
	}

	if len(matchedTypes) >= 2 {
		s.Score *= 1 + cfg.MultiEvidenceBonus
	}
	if _, ok := neighborSet[strutil.NormalizeUpper(p.Number)]; ok {
		s.Score += cfg.ProximityBonus
	}

	if bound > 0 {
		s.Confidence = s.Score / bound
		if s.Confidence > 1 {
			s.Confidence = 1
		}
	}
	s.Debug.NonNumberScore = s.nonNumber
	for t := range matchedTypes {
		s.Debug.EvidenceTypes = append(s.Debug.EvidenceTypes, string(t))
	}
	sort.Strings(s.Debug.EvidenceTypes)
	return s
}

// similarity computes the per-type match strength in [0,1]. Exact fields are
// binary; free-text fields use Jaro-Winkler thresholded by the sport's
// name-similarity gate.
func similarity(item evidence.Evidence, p roster.Participant, nameThreshold float64) float64 {
	switch item.Type {
	case evidence.TypeRaceNumber:
		if strutil.NormalizeUpper(p.Number) == strutil.NormalizeUpper(item.Value) {
			return 1
		}
	case evidence.TypePersonName:
		best := 0.0
		for _, name := range p.Names {
			if sim := strutil.Similarity(name, item.Value); sim > best {
				best = sim
			}
		}
		if best >= nameThreshold {
			return best
		}
	case evidence.TypeSponsor:
		best := 0.0
		for _, sponsor := range p.Sponsors {
			if sim := strutil.TokenSimilarity(sponsor, item.Value); sim > best {
				best = sim
			}
		}
		if best >= nameThreshold {
			return best
		}
	case evidence.TypeTeam:
		if sim := strutil.Similarity(p.Team, item.Value); sim >= nameThreshold {
			return sim
		}
	case evidence.TypeCategory:
		if p.Category != "" && strings.EqualFold(strings.TrimSpace(p.Category), strings.TrimSpace(item.Value)) {
			return 1
		}
	case evidence.TypePlateNumber:
		if p.Plate != "" && strutil.NormalizeUpper(p.Plate) == strutil.NormalizeUpper(item.Value) {
			return 1
		}
	}
	return 0
}

func typeWeight(t evidence.Type, w sport.Weights) float64 {
	switch t {
	case evidence.TypeRaceNumber:
		return w.RaceNumber
	case evidence.TypePersonName:
		return w.PersonName
	case evidence.TypeSponsor:
		return w.Sponsor
	case evidence.TypeTeam:
		return w.Team
	case evidence.TypeCategory:
		return w.Category
	case evidence.TypePlateNumber:
		return w.PlateNumber
	}
	return 0
}
