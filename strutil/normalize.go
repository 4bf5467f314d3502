package strutil

import (
	"strings"
	"unicode"
)

// NormalizeUpper trims surrounding whitespace and converts to upper case.
// Use for race numbers, plates, and other tokens where case is not significant.
func NormalizeUpper(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// NormalizeLower trims surrounding whitespace and converts to lower case.
func NormalizeLower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// CollapseSpaces trims a string and folds internal whitespace runs into a
// single space. OCR output frequently carries doubled spaces between tokens.
func CollapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// DigitRatio returns the fraction of runes in s that are decimal digits.
// Returns 0 for an empty string.
func DigitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	digits := 0
	total := 0
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return float64(digits) / float64(total)
}

// CapitalizedWordRatio returns the fraction of whitespace-separated words
// that start with an upper-case letter.
func CapitalizedWordRatio(s string) float64 {
	words := strings.Fields(s)
	if len(words) == 0 {
		return 0
	}
	capped := 0
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			capped++
		}
	}
	return float64(capped) / float64(len(words))
}

// IsAllUpper reports whether s contains at least one letter and every letter
// in it is upper case.
func IsAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// LooksLikeNameShape reports whether s matches a canonical person-name shape:
// "First Last" (each word leading-capital, rest lower) or the abbreviated
// "F. Last" form. OCR artifacts rarely reproduce these shapes by accident.
func LooksLikeNameShape(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 {
		return false
	}
	for i, w := range words {
		r := []rune(w)
		if len(r) == 0 || !unicode.IsUpper(r[0]) {
			return false
		}
		// Abbreviated initial ("F.") is only plausible before the last word.
		if len(r) == 2 && r[1] == '.' && i < len(words)-1 {
			continue
		}
		for _, c := range r[1:] {
			if unicode.IsLetter(c) && !unicode.IsLower(c) {
				return false
			}
		}
	}
	return true
}
