package strutil

import "strings"

// jaroWinklerPrefixScale is the standard Winkler prefix bonus weight; the
// prefix length it applies to is capped at four characters.
const jaroWinklerPrefixScale = 0.1

// Similarity returns a case-insensitive Jaro-Winkler similarity in [0,1]
// between two strings after whitespace normalization. Used for fuzzy matching
// of names, sponsors, and team strings where exact equality is too strict.
func Similarity(a, b string) float64 {
	a = NormalizeUpper(CollapseSpaces(a))
	b = NormalizeUpper(CollapseSpaces(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return jaroWinkler(a, b)
}

// TokenSimilarity returns the best Similarity between b and any
// whitespace-separated token of a, or the whole of a, whichever is higher.
// Sponsor and team strings are often multi-word while the OCR sees one word.
func TokenSimilarity(a, b string) float64 {
	best := Similarity(a, b)
	for _, tok := range strings.Fields(a) {
		if s := Similarity(tok, b); s > best {
			best = s
		}
	}
	return best
}

func jaroWinkler(a, b string) float64 {
	j := jaro(a, b)
	if j <= 0 {
		return 0
	}
	prefix := 0
	ra := []rune(a)
	rb := []rune(b)
	for prefix < len(ra) && prefix < len(rb) && prefix < 4 && ra[prefix] == rb[prefix] {
		prefix++
	}
	return j + float64(prefix)*jaroWinklerPrefixScale*(1-j)
}

func jaro(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	la := len(ra)
	lb := len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	window := la
	if lb > window {
		window = lb
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchA := make([]bool, la)
	matchB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if matchB[j] || ra[i] != rb[j] {
				continue
			}
			matchA[i] = true
			matchB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !matchA[i] {
			continue
		}
		for !matchB[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}
