package matching

// Scorer provides the string comparison algorithms used by the cascades and
// the similarity rescoring pass
type Scorer struct {
	// BoostThreshold is the Jaro similarity above which the common prefix
	// boost is applied
	BoostThreshold float64
	// PrefixScale is the Winkler scaling factor
	PrefixScale float64
	// MaxPrefix caps the common prefix length considered by the boost
	MaxPrefix int
}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{
		BoostThreshold: 0.7,
		PrefixScale:    0.1,
		MaxPrefix:      4,
	}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings
// Returns a value between 0.0 (no similarity) and 1.0 (exact match)
func (s *Scorer) JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	jaro := jaro(ra, rb)
	if jaro <= s.BoostThreshold {
		return jaro
	}

	prefixLen := 0
	for i := 0; i < len(ra) && i < len(rb) && i < s.MaxPrefix; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefixLen++
	}

	return jaro + float64(prefixLen)*s.PrefixScale*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings
func (s *Scorer) Jaro(a, b string) float64 {
	return jaro([]rune(a), []rune(b))
}

func jaro(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if string(a) == string(b) {
		return 1.0
	}

	// Maximum distance for character matching
	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// FuzzyMatch reports whether two strings clear the given Jaro-Winkler threshold
func (s *Scorer) FuzzyMatch(a, b string, threshold float64) bool {
	return s.JaroWinkler(a, b) >= threshold
}

// SequenceRatio returns the Ratcliff/Obershelp similarity 2*M/T, where M is
// the number of characters in matching blocks and T the total length. The
// block search is order dependent, so the larger of both directions is used.
func (s *Scorer) SequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	m := max(matchingCharacters(ra, rb), matchingCharacters(rb, ra))
	return 2.0 * float64(m) / float64(total)
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingCharacters sums the sizes of the matching blocks of a and b
func matchingCharacters(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	total := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		sp := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b2j, sp)
		if k == 0 {
			continue
		}
		total += k
		if sp.alo < i && sp.blo < j {
			queue = append(queue, span{sp.alo, i, sp.blo, j})
		}
		if i+k < sp.ahi && j+k < sp.bhi {
			queue = append(queue, span{i + k, sp.ahi, j + k, sp.bhi})
		}
	}
	return total
}

// longestMatch finds the longest common block within the span. Ties go to
// the block starting earliest in a, then earliest in b.
func longestMatch(a []rune, b2j map[rune][]int, sp span) (int, int, int) {
	besti, bestj, bestsize := sp.alo, sp.blo, 0
	j2len := map[int]int{}
	for i := sp.alo; i < sp.ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < sp.blo {
				continue
			}
			if j >= sp.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestsize
}
