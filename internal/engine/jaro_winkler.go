package engine

import "math"

const (
	// winklerPrefixScale is the Winkler boost per shared leading character.
	winklerPrefixScale = 0.1

	// winklerMaxPrefix caps the shared prefix counted by the boost.
	winklerMaxPrefix = 4
)

// Jaro returns the Jaro similarity of a and b in [0,1].
// Equal strings (including two empty strings) score 1; one empty string
// scores 0.
func Jaro(a, b string) float64 {
	if a == b {
		return 1
	}
	// Fix the argument order so greedy matching yields the same count
	// whichever way round the caller passes the strings.
	if a > b {
		a, b = b, a
	}
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	window := max(len(s1), len(s2))/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len(s1))
	matched2 := make([]bool, len(s2))
	matches := 0

	for i, r := range s1 {
		lo := max(0, i-window)
		hi := min(len(s2)-1, i+window)
		for j := lo; j <= hi; j++ {
			if matched2[j] || s2[j] != r {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	// Count matched characters that appear in a different order.
	transpositions := 0
	k := 0
	for i := range s1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-t)/m) / 3
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0,1]:
// jaro + prefix*0.1*(1-jaro), where prefix is the shared leading run capped
// at four characters. It is symmetric and never fails.
func JaroWinkler(a, b string) float64 {
	jaro := Jaro(a, b)
	if jaro == 0 || jaro == 1 {
		return jaro
	}

	r1, r2 := []rune(a), []rune(b)
	prefix := 0
	for prefix < winklerMaxPrefix && prefix < len(r1) && prefix < len(r2) && r1[prefix] == r2[prefix] {
		prefix++
	}

	return math.Min(jaro+float64(prefix)*winklerPrefixScale*(1-jaro), 1)
}
