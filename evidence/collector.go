package evidence

import (
	"regexp"
	"strings"
	"unicode"

	"bibmatch/strutil"
)

// SourceOCR tags evidence taken directly from the analysis result. The OCR
// corrector appends SourceOCRCorrected variants; keeping the provenance on the
// item lets the resolution log explain where each contribution came from.
const (
	SourceOCR          = "ocr_analysis"
	SourceOCRCorrected = "ocr_analysis_corrected"
)

// allowedNumberPattern matches plausible race numbers: digits optionally
// mixed with a short letter prefix/suffix ("42A", "P1").
var allowedNumberPattern = regexp.MustCompile(`^[A-Z]?[0-9]{1,4}[A-Z]?$`)

// ambiguousPairs lists character pairs OCR engines routinely confuse on race
// plates. Presence of either side lowers number quality.
var ambiguousPairs = []string{"0O", "Il1", "6G", "8B"}

// sponsorIndicators and teamIndicators are curated keyword lists used to
// classify free text tokens. Lower-cased for comparison.
var sponsorIndicators = []string{
	"racing", "team", "energy", "tyre", "tire", "oil", "fuel", "motul",
	"castrol", "monster", "redbull", "red bull", "shell", "motorsport",
	"moto", "sport", "bank", "insurance", "telecom",
}

var teamIndicators = []string{
	"team", "racing", "motorsport", "factory", "works", "squadra", "scuderia",
}

// Collector turns raw analysis results into quality-scored evidence. It holds
// only tuning constants, so a single instance is safe for concurrent use.
type Collector struct {
	minNameLength int
}

// NewCollector returns a Collector with default heuristics.
func NewCollector() *Collector {
	return &Collector{minNameLength: 3}
}

// Extract produces every evidence item present in the raw result, sorted
// descending by quality×confidence. Missing or empty fields are skipped;
// nothing here can fail.
func (c *Collector) Extract(raw RawResult) []Evidence {
	items := make([]Evidence, 0, 4+len(raw.Drivers)+len(raw.OtherText))

	if num := strutil.NormalizeUpper(raw.RaceNumber); num != "" {
		// A result with no confidence still carries a readable number; it
		// degrades to the conservative default rather than scoring zero.
		conf := defaultTextConfidence(raw.Confidence)
		items = append(items, Evidence{
			Type:       TypeRaceNumber,
			Value:      num,
			Confidence: conf,
			Quality:    c.numberQuality(num) * conf,
			Source:     SourceOCR,
		})
	}

	for _, driver := range raw.Drivers {
		name := strutil.CollapseSpaces(driver)
		if name == "" {
			continue
		}
		items = append(items, Evidence{
			Type:       TypePersonName,
			Value:      name,
			Confidence: defaultTextConfidence(raw.Confidence),
			Quality:    c.nameQuality(name),
			Source:     SourceOCR,
		})
	}

	if team := strutil.CollapseSpaces(raw.TeamName); team != "" {
		items = append(items, Evidence{
			Type:       TypeTeam,
			Value:      team,
			Confidence: defaultTextConfidence(raw.Confidence),
			Quality:    c.teamQuality(team),
			Source:     SourceOCR,
		})
	}

	for _, text := range raw.OtherText {
		token := strutil.CollapseSpaces(text)
		if token == "" {
			continue
		}
		if !c.looksLikeSponsor(token) {
			continue
		}
		items = append(items, Evidence{
			Type:       TypeSponsor,
			Value:      token,
			Confidence: defaultTextConfidence(raw.Confidence),
			Quality:    c.sponsorQuality(token),
			Source:     SourceOCR,
		})
	}

	if cat := strutil.CollapseSpaces(raw.Category); cat != "" {
		items = append(items, Evidence{
			Type:       TypeCategory,
			Value:      cat,
			Confidence: defaultTextConfidence(raw.Confidence),
			Quality:    c.categoryQuality(cat),
			Source:     SourceOCR,
		})
	}

	if plate := strutil.NormalizeUpper(raw.PlateNumber); plate != "" {
		conf := clamp01(raw.PlateConfidence)
		if conf == 0 {
			conf = defaultTextConfidence(raw.Confidence)
		}
		items = append(items, Evidence{
			Type:       TypePlateNumber,
			Value:      plate,
			Confidence: conf,
			Quality:    c.plateQuality(plate),
			Source:     SourceOCR,
		})
	}

	SortByWeight(items)
	return items
}

// numberQuality scores a normalized race number string. Penalties are
// multiplicative so several weak signals compound.
func (c *Collector) numberQuality(num string) float64 {
	quality := 1.0
	if len(num) < 1 || len(num) > 4 {
		quality *= 0.5
	}
	if !allowedNumberPattern.MatchString(num) {
		quality *= 0.4
	}
	for _, pair := range ambiguousPairs {
		if strings.ContainsAny(num, pair) {
			quality *= 0.85
		}
	}
	return clamp01(quality)
}

func (c *Collector) nameQuality(name string) float64 {
	quality := 0.8
	if len([]rune(name)) < c.minNameLength {
		quality *= 0.4
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			quality *= 0.5
			break
		}
	}
	if strings.ContainsAny(name, "@#$%&*+=<>/\\|") {
		quality *= 0.5
	}
	if strutil.LooksLikeNameShape(name) {
		quality *= 1.25
	}
	// Long all-caps strings are usually sponsor boards misread as names.
	if strutil.IsAllUpper(name) && len([]rune(name)) > 4 {
		quality *= 0.7
	}
	return clamp01(quality)
}

func (c *Collector) sponsorQuality(token string) float64 {
	quality := 0.7
	if strutil.DigitRatio(token) > 0.3 {
		quality *= 0.5
	}
	r := []rune(token)
	if len(r) > 0 && unicode.IsUpper(r[0]) {
		quality *= 1.15
	}
	return clamp01(quality)
}

func (c *Collector) teamQuality(team string) float64 {
	quality := 0.75
	lower := strutil.NormalizeLower(team)
	for _, kw := range teamIndicators {
		if strings.Contains(lower, kw) {
			quality *= 1.2
			break
		}
	}
	if strutil.DigitRatio(team) > 0.3 {
		quality *= 0.5
	}
	return clamp01(quality)
}

func (c *Collector) categoryQuality(cat string) float64 {
	quality := 0.8
	if len([]rune(cat)) > 20 {
		quality *= 0.6
	}
	return clamp01(quality)
}

// plateQuality rewards the canonical plate shape: letters and digits mixed,
// total length 4-10.
func (c *Collector) plateQuality(plate string) float64 {
	quality := 0.7
	hasLetter := false
	hasDigit := false
	for _, r := range plate {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	n := len([]rune(plate))
	if hasLetter && hasDigit && n >= 4 && n <= 10 {
		quality *= 1.3
	} else if n < 4 || n > 10 {
		quality *= 0.5
	}
	return clamp01(quality)
}

// looksLikeSponsor classifies a free text token as sponsor text when it
// contains an indicator keyword or when at least 70% of its words are
// capitalized (brand lettering).
func (c *Collector) looksLikeSponsor(token string) bool {
	lower := strutil.NormalizeLower(token)
	for _, kw := range sponsorIndicators {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strutil.CapitalizedWordRatio(token) >= 0.7
}

// defaultTextConfidence derives a confidence for fields that carry no
// per-field confidence of their own. The overall OCR confidence is used when
// present, otherwise a conservative constant.
func defaultTextConfidence(overall float64) float64 {
	if overall > 0 {
		return clamp01(overall)
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
