package ocr

// IndelDistance computes the edit distance between a and b counting only
// insertions and deletions (no substitutions). The fallback correction path
// targets single-character drop/insert errors, where a substitution-aware
// distance would pull in unrelated numbers at the same cost.
func IndelDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	la := len(ra)
	lb := len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j // j inserts
	}
	for i := 1; i <= la; i++ {
		cur[0] = i // i deletes
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			insert := cur[j-1] + 1
			remove := prev[j] + 1
			if insert < remove {
				cur[j] = insert
			} else {
				cur[j] = remove
			}
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
