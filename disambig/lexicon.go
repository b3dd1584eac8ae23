package disambig

import (
	"strconv"
	"strings"

	"github.com/katalvlaran/hclg/fst"
)

// LexiconDisambig decides which pronunciations need a disambiguation suffix.
//
// A pronunciation needs one when it is empty, a proper prefix of another
// pronunciation, or shared by more than one entry. Such entries receive #k
// with k ≥ 1, numbered per distinct phone sequence in entry order (the first
// "k a t" gets #1, the second #2, ...); #0 stays reserved for backoff.
//
// suffix[i] is 0 for entries without a suffix. maxIndex is the largest k
// used, so #0..#maxIndex must be allocated.
//
// Complexity: O(total phones · longest pronunciation).
func LexiconDisambig(prons [][]fst.Label) (suffix []int, maxIndex int) {
	// 1. Count full sequences and record every proper prefix.
	count := make(map[string]int, len(prons))
	prefix := make(map[string]bool)
	for _, p := range prons {
		count[pronKey(p)]++
		for n := 0; n < len(p); n++ {
			prefix[pronKey(p[:n])] = true
		}
	}

	// 2. Number the ambiguous entries per distinct sequence.
	suffix = make([]int, len(prons))
	last := make(map[string]int)
	for i, p := range prons {
		key := pronKey(p)
		if len(p) > 0 && count[key] == 1 && !prefix[key] {
			continue
		}
		last[key]++
		suffix[i] = last[key]
		if suffix[i] > maxIndex {
			maxIndex = suffix[i]
		}
	}

	return suffix, maxIndex
}

func pronKey(p []fst.Label) string {
	var b strings.Builder
	for i, l := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(int(l)))
	}

	return b.String()
}
