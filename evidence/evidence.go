// Package evidence extracts typed, quality-scored observations from one
// image's raw analysis result. The collector is a pure function of its input:
// no I/O, no shared state, identical input yields identical output.
package evidence

import "sort"

// Type identifies what kind of signal an Evidence item carries.
type Type string

const (
	TypeRaceNumber  Type = "race_number"
	TypePersonName  Type = "person_name"
	TypeSponsor     Type = "sponsor"
	TypeTeam        Type = "team"
	TypeCategory    Type = "category"
	TypePlateNumber Type = "plate_number"
)

// Evidence is one observed signal from one image. Confidence is the
// source-reported reliability; Quality is computed here from structural
// heuristics. Items are never mutated after creation except for the Score
// the matcher attaches during evaluation.
type Evidence struct {
	Type       Type    `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Quality    float64 `json:"quality"`
	Source     string  `json:"source"`
	Score      float64 `json:"score,omitempty"`
}

// Weight is the combined reliability of the item used for ordering.
func (e Evidence) Weight() float64 {
	return e.Quality * e.Confidence
}

// RawResult is the JSON-shaped output of the upstream vision/OCR service.
// Absent fields simply produce no evidence of that type; malformed content is
// penalized through quality, never rejected.
type RawResult struct {
	RaceNumber      string   `json:"raceNumber,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	Drivers         []string `json:"drivers,omitempty"`
	TeamName        string   `json:"teamName,omitempty"`
	OtherText       []string `json:"otherText,omitempty"`
	Category        string   `json:"category,omitempty"`
	PlateNumber     string   `json:"plateNumber,omitempty"`
	PlateConfidence float64  `json:"plateConfidence,omitempty"`
}

// SortByWeight orders evidence in place, highest quality×confidence first.
// Ties keep their existing relative order so extraction stays deterministic.
func SortByWeight(items []Evidence) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Weight() > items[j].Weight()
	})
}

// FilterByQuality returns the items whose quality meets minQuality. The input
// slice is not modified.
func FilterByQuality(items []Evidence, minQuality float64) []Evidence {
	out := make([]Evidence, 0, len(items))
	for _, e := range items {
		if e.Quality >= minQuality {
			out = append(out, e)
		}
	}
	return out
}

// GroupByType buckets evidence items by their type. The input slice is not
// modified.
func GroupByType(items []Evidence) map[Type][]Evidence {
	groups := make(map[Type][]Evidence)
	for _, e := range items {
		groups[e.Type] = append(groups[e.Type], e)
	}
	return groups
}
