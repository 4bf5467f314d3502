package roster

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDisplayName(t *testing.T) {
	p := Participant{Number: "46", Names: []string{"", " Valentino Rossi "}}
	if got := p.DisplayName(); got != "Valentino Rossi" {
		t.Fatalf("got %q", got)
	}
	anon := Participant{Number: "46"}
	if got := anon.DisplayName(); got != "#46" {
		t.Fatalf("got %q, want #46 fallback", got)
	}
}

func TestNameCount(t *testing.T) {
	p := Participant{Names: []string{"Driver", " ", "Co-Driver"}}
	if got := p.NameCount(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestKnownNumbersNormalized(t *testing.T) {
	known := KnownNumbers([]Participant{
		{Number: " 46a "},
		{Number: "7"},
		{Number: ""},
	})
	if len(known) != 2 {
		t.Fatalf("got %d numbers, want 2", len(known))
	}
	if _, ok := known["46A"]; !ok {
		t.Fatal("normalized 46A missing")
	}
}

func TestContentHashChangesWithContent(t *testing.T) {
	a := []Participant{{Number: "46", Names: []string{"Rossi"}}}
	b := []Participant{{Number: "46", Names: []string{"Rossi"}}}
	c := []Participant{{Number: "46", Names: []string{"Bruni"}}}

	if ContentHash(a) != ContentHash(b) {
		t.Fatal("identical rosters hashed differently")
	}
	if ContentHash(a) == ContentHash(c) {
		t.Fatal("edited roster kept the same hash")
	}
	if len(ContentHash(a)) != 16 {
		t.Fatalf("hash %q is not 16 hex chars", ContentHash(a))
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	content := "number,names,team,sponsors,category,plate\n" +
		"46,Valentino Rossi,Monster Yamaha,Monster Energy;Yamalube,MotoGP,\n" +
		"11,Driver One;Co-Driver One,Rally Team,,RC2,KM 123 AB\n" +
		"7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	participants, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("got %d participants, want 3 (header skipped)", len(participants))
	}
	p := participants[0]
	if p.Number != "46" || p.Team != "Monster Yamaha" || p.Category != "MotoGP" {
		t.Fatalf("first row: %+v", p)
	}
	if len(p.Sponsors) != 2 || p.Sponsors[1] != "Yamalube" {
		t.Fatalf("sponsors: %v", p.Sponsors)
	}
	crew := participants[1]
	if len(crew.Names) != 2 || crew.Names[1] != "Co-Driver One" {
		t.Fatalf("crew names: %v", crew.Names)
	}
	if crew.Plate != "KM 123 AB" {
		t.Fatalf("plate: %q", crew.Plate)
	}
	if participants[2].Number != "7" || len(participants[2].Names) != 0 {
		t.Fatalf("short row: %+v", participants[2])
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	content := `[{"number":"46","names":["Valentino Rossi"],"sponsors":["Monster Energy"]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	participants, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(participants) != 1 || participants[0].Number != "46" {
		t.Fatalf("got %+v", participants)
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("missing file should error")
	}
}
