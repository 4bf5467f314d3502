package sport

import (
	"fmt"
	"testing"

	"bibmatch/roster"
)

func TestSuggestEmptyRoster(t *testing.T) {
	s := SuggestSport(nil)
	if s.Sport != "generic" || s.Confidence != 0 {
		t.Fatalf("got %+v, want generic with zero confidence", s)
	}
	if len(s.Reasons) == 0 {
		t.Fatal("expected an explanatory reason")
	}
}

func TestSuggestRunningFromLargeNumbers(t *testing.T) {
	var participants []roster.Participant
	for i := 0; i < 50; i++ {
		participants = append(participants, roster.Participant{
			Number: fmt.Sprintf("%d", 10500+i),
			Names:  []string{"Runner"},
		})
	}
	s := SuggestSport(participants)
	if s.Sport != "running" {
		t.Fatalf("sport = %q, want running", s.Sport)
	}
	if s.Confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9 for >10000 numbers", s.Confidence)
	}
}

func TestSuggestRunningMidRange(t *testing.T) {
	participants := []roster.Participant{
		{Number: "1100", Names: []string{"A"}},
		{Number: "1200", Names: []string{"B"}},
	}
	s := SuggestSport(participants)
	if s.Sport != "running" || s.Confidence != 0.7 {
		t.Fatalf("got %+v, want running at 0.7", s)
	}
}

func TestSuggestMotorsportFromCrewSize(t *testing.T) {
	participants := []roster.Participant{
		{Number: "1", Names: []string{"Driver One", "Co-Driver One"}},
		{Number: "2", Names: []string{"Driver Two", "Co-Driver Two"}},
	}
	s := SuggestSport(participants)
	if s.Sport != "motorsport" {
		t.Fatalf("sport = %q, want motorsport", s.Sport)
	}
	if s.Confidence != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", s.Confidence)
	}
}

func TestSuggestSponsorDensityReinforcesMotorsport(t *testing.T) {
	// Crews of two plus heavy sponsorship: the sponsor rule upgrades the
	// motorsport confidence rather than switching to cycling.
	participants := []roster.Participant{
		{Number: "1", Names: []string{"A", "B"}, Sponsors: []string{"S1", "S2", "S3"}},
		{Number: "2", Names: []string{"C", "D"}, Sponsors: []string{"S4", "S5", "S6"}},
	}
	s := SuggestSport(participants)
	if s.Sport != "motorsport" || s.Confidence != 0.8 {
		t.Fatalf("got %+v, want motorsport at 0.8", s)
	}
}

func TestSuggestCyclingFromSponsorsAlone(t *testing.T) {
	participants := []roster.Participant{
		{Number: "11", Names: []string{"Solo Rider"}, Sponsors: []string{"S1", "S2", "S3"}},
		{Number: "12", Names: []string{"Solo Rider"}, Sponsors: []string{"S4", "S5", "S6"}},
	}
	s := SuggestSport(participants)
	if s.Sport != "cycling" || s.Confidence != 0.6 {
		t.Fatalf("got %+v, want cycling at 0.6", s)
	}
}

func TestSuggestStrongNumberSignalHoldsAgainstWeakerRules(t *testing.T) {
	// Marathon-sized numbers with sponsors: the 0.9 number rule outranks the
	// 0.6 cycling sponsor rule.
	participants := []roster.Participant{
		{Number: "15000", Names: []string{"A"}, Sponsors: []string{"S1", "S2", "S3"}},
		{Number: "15001", Names: []string{"B"}, Sponsors: []string{"S4", "S5", "S6"}},
	}
	s := SuggestSport(participants)
	if s.Sport != "running" || s.Confidence != 0.9 {
		t.Fatalf("got %+v, want running at 0.9", s)
	}
	if len(s.Reasons) < 2 {
		t.Fatalf("expected both rules recorded, got %v", s.Reasons)
	}
}

func TestNumericPartMixedNumbers(t *testing.T) {
	participants := []roster.Participant{
		{Number: "42A", Names: []string{"A"}},
		{Number: "P1", Names: []string{"B"}},
	}
	// Must not panic and must treat "42A" as 42, "P1" as 1.
	s := SuggestSport(participants)
	if s.Sport != "generic" {
		t.Fatalf("small mixed numbers should stay generic, got %q", s.Sport)
	}
}
