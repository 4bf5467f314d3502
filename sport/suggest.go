package sport

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"bibmatch/roster"
)

// Suggestion is the outcome of the roster-statistics classifier, with the
// human-readable reasoning that produced it.
type Suggestion struct {
	Sport      string
	Confidence float64
	Reasons    []string
}

// SuggestSport guesses a sport profile from roster statistics. This is a
// heuristic classifier, not a scoring function: the three rules run in a
// fixed order (number range, team size, sponsor count) and the last rule to
// raise confidence above the previous value wins. The order dependence is
// deliberate and documented behavior, not a correctness guarantee.
func SuggestSport(participants []roster.Participant) Suggestion {
	s := Suggestion{Sport: "generic", Confidence: 0}
	if len(participants) == 0 {
		s.Reasons = append(s.Reasons, "empty roster, no signal")
		return s
	}

	maxNumber := 0
	sumNumber := 0
	numericCount := 0
	totalNames := 0
	totalSponsors := 0
	for _, p := range participants {
		if n, ok := numericPart(p.Number); ok {
			numericCount++
			sumNumber += n
			if n > maxNumber {
				maxNumber = n
			}
		}
		totalNames += p.NameCount()
		totalSponsors += len(p.Sponsors)
	}

	// Rule 1: number range. Mass-participation events issue large bibs.
	if numericCount > 0 {
		avgNumber := float64(sumNumber) / float64(numericCount)
		switch {
		case maxNumber > 10000:
			s.apply("running", 0.9, fmt.Sprintf("max race number %d exceeds 10000", maxNumber))
		case maxNumber > 999:
			s.apply("running", 0.7, fmt.Sprintf("max race number %d exceeds 999", maxNumber))
		case avgNumber > 500:
			s.apply("running", 0.6, fmt.Sprintf("average race number %.0f exceeds 500", avgNumber))
		}
	}

	// Rule 2: crew size. More than one name per entry points at motorsport.
	avgTeamSize := float64(totalNames) / float64(len(participants))
	if avgTeamSize > 1.5 {
		s.apply("motorsport", 0.7, fmt.Sprintf("average crew size %.1f exceeds 1.5", avgTeamSize))
	}

	// Rule 3: sponsor density. Heavy sponsorship reinforces motorsport, or
	// suggests cycling trade teams when motorsport is not already leading.
	avgSponsors := float64(totalSponsors) / float64(len(participants))
	if avgSponsors > 2 {
		if s.Sport == "motorsport" {
			s.apply("motorsport", 0.8, fmt.Sprintf("average sponsor count %.1f exceeds 2", avgSponsors))
		} else {
			s.apply("cycling", 0.6, fmt.Sprintf("average sponsor count %.1f exceeds 2", avgSponsors))
		}
	}

	if len(s.Reasons) == 0 {
		s.Reasons = append(s.Reasons, "no rule triggered, defaulting to generic")
	}
	return s
}

// apply records a rule outcome. The rule takes over only when it raises
// confidence above the current value (last writer among equal-order rules).
func (s *Suggestion) apply(sport string, confidence float64, reason string) {
	s.Reasons = append(s.Reasons, reason)
	if confidence > s.Confidence {
		s.Sport = sport
		s.Confidence = confidence
	}
}

// numericPart parses the leading digit run of a race number ("42A" -> 42).
func numericPart(number string) (int, bool) {
	number = strings.TrimSpace(number)
	start := -1
	end := -1
	for i, r := range number {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			end = i + 1
			continue
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(number[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
