package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadJSON reads a roster from a JSON array of participants.
func LoadJSON(path string) ([]Participant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	var participants []Participant
	if err := json.Unmarshal(data, &participants); err != nil {
		return nil, fmt.Errorf("roster: parse %s: %w", path, err)
	}
	return participants, nil
}

// LoadCSV reads a roster from a CSV start list. Expected columns:
//
//	number, names, team, sponsors, category, plate
//
// Names and sponsors are semicolon-separated within their cell. A header row
// is detected by a non-numeric first cell and skipped. Trailing columns may
// be omitted.
func LoadCSV(path string) ([]Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var participants []Participant
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster: parse %s: %w", path, err)
		}
		if len(record) == 0 {
			continue
		}
		if first {
			first = false
			if looksLikeHeader(record[0]) {
				continue
			}
		}
		p := Participant{Number: strings.TrimSpace(record[0])}
		if p.Number == "" {
			continue
		}
		if len(record) > 1 {
			p.Names = splitCell(record[1])
		}
		if len(record) > 2 {
			p.Team = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			p.Sponsors = splitCell(record[3])
		}
		if len(record) > 4 {
			p.Category = strings.TrimSpace(record[4])
		}
		if len(record) > 5 {
			p.Plate = strings.TrimSpace(record[5])
		}
		participants = append(participants, p)
	}
	return participants, nil
}

func looksLikeHeader(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return true
	}
	for _, r := range cell {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

func splitCell(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
