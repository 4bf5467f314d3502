package evidence

import (
	"math"
	"reflect"
	"testing"
)

func TestExtractIsPure(t *testing.T) {
	raw := RawResult{
		RaceNumber: "46",
		Confidence: 0.9,
		Drivers:    []string{"Valentino Rossi"},
		TeamName:   "Monster Yamaha",
		OtherText:  []string{"Monster Energy", "random lowercase mumble"},
	}
	c := NewCollector()
	first := c.Extract(raw)
	second := c.Extract(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Extract is not deterministic for identical input")
	}
}

func TestExtractRaceNumber(t *testing.T) {
	c := NewCollector()
	items := c.Extract(RawResult{RaceNumber: " 46 ", Confidence: 0.9})
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	e := items[0]
	if e.Type != TypeRaceNumber || e.Value != "46" {
		t.Fatalf("got %+v", e)
	}
	if e.Confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9", e.Confidence)
	}
	// "46" contains the ambiguous '6', so quality carries one 0.85 penalty
	// scaled by the OCR confidence.
	want := 0.85 * 0.9
	if math.Abs(e.Quality-want) > 1e-9 {
		t.Fatalf("quality = %v, want %v", e.Quality, want)
	}
	if e.Source != SourceOCR {
		t.Fatalf("source = %q", e.Source)
	}
}

func TestExtractNumberWithoutConfidence(t *testing.T) {
	c := NewCollector()
	items := c.Extract(RawResult{RaceNumber: "46"})
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Confidence != 0.5 {
		t.Fatalf("confidence = %v, want conservative 0.5 default", items[0].Confidence)
	}
	want := 0.85 * 0.5
	if math.Abs(items[0].Quality-want) > 1e-9 {
		t.Fatalf("quality = %v, want %v", items[0].Quality, want)
	}
}

func TestExtractEmptyResult(t *testing.T) {
	c := NewCollector()
	if items := c.Extract(RawResult{}); len(items) != 0 {
		t.Fatalf("empty raw result produced %d items", len(items))
	}
}

func TestExtractSortedByWeight(t *testing.T) {
	c := NewCollector()
	items := c.Extract(RawResult{
		RaceNumber: "46",
		Confidence: 0.9,
		Drivers:    []string{"Valentino Rossi"},
		TeamName:   "Monster Yamaha Racing",
		Category:   "MotoGP",
	})
	if len(items) < 3 {
		t.Fatalf("got %d items", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].Weight() > items[i-1].Weight() {
			t.Fatalf("items not sorted by weight at %d: %v > %v", i, items[i].Weight(), items[i-1].Weight())
		}
	}
}

func TestExtractSponsorClassification(t *testing.T) {
	c := NewCollector()
	items := c.Extract(RawResult{
		Confidence: 0.8,
		OtherText: []string{
			"Monster Energy",           // keyword hit
			"Castrol",                  // keyword hit
			"random lowercase mumble",  // neither keyword nor capitalized
			"Proudly Presented Brands", // capitalized ratio
		},
	})
	var sponsors []string
	for _, e := range items {
		if e.Type == TypeSponsor {
			sponsors = append(sponsors, e.Value)
		}
	}
	if len(sponsors) != 3 {
		t.Fatalf("got sponsors %v, want 3 entries", sponsors)
	}
	for _, s := range sponsors {
		if s == "random lowercase mumble" {
			t.Fatal("lowercase mumble classified as sponsor")
		}
	}
}

func TestNameQualityShape(t *testing.T) {
	c := NewCollector()
	good := c.Extract(RawResult{Confidence: 0.8, Drivers: []string{"Valentino Rossi"}})
	bad := c.Extract(RawResult{Confidence: 0.8, Drivers: []string{"R0ss1 46"}})
	if len(good) != 1 || len(bad) != 1 {
		t.Fatalf("expected one item each, got %d/%d", len(good), len(bad))
	}
	if good[0].Quality <= bad[0].Quality {
		t.Fatalf("name-shaped quality %v should exceed digit-laden %v", good[0].Quality, bad[0].Quality)
	}
}

func TestExtractMalformedFields(t *testing.T) {
	c := NewCollector()
	// Garbage inputs must degrade quality, never panic or vanish entirely.
	items := c.Extract(RawResult{
		RaceNumber: "???##",
		Confidence: 0.5,
		Drivers:    []string{"   ", "@#$"},
	})
	found := false
	for _, e := range items {
		if e.Type == TypeRaceNumber {
			found = true
			if e.Quality >= 0.5 {
				t.Fatalf("malformed number quality = %v, want < 0.5", e.Quality)
			}
		}
		if e.Type == TypePersonName && e.Value == "" {
			t.Fatal("blank driver produced evidence")
		}
	}
	if !found {
		t.Fatal("malformed race number dropped instead of down-weighted")
	}
}

func TestFilterAndGroup(t *testing.T) {
	items := []Evidence{
		{Type: TypeRaceNumber, Quality: 0.9},
		{Type: TypePersonName, Quality: 0.3},
		{Type: TypePersonName, Quality: 0.8},
	}
	kept := FilterByQuality(items, 0.5)
	if len(kept) != 2 {
		t.Fatalf("FilterByQuality kept %d, want 2", len(kept))
	}
	groups := GroupByType(items)
	if len(groups[TypePersonName]) != 2 || len(groups[TypeRaceNumber]) != 1 {
		t.Fatalf("GroupByType: %v", groups)
	}
}
