package fingerprint

import (
	"hash/fnv"
	"sort"

	"github.com/RishiKendai/argus/internal/models"
)

// Rolling hash constants. Collisions under primeMod are tolerated: a hash
// match counts as a true match, there is no verification pass for scoring.
const (
	primeBase uint64 = 1000003
	primeMod  uint64 = 1000000007
)

// Fingerprinter produces Rabin-Karp fingerprints over k-token windows.
type Fingerprinter struct {
	window int
}

// New creates a Fingerprinter with the given window size k.
func New(window int) *Fingerprinter {
	return &Fingerprinter{window: window}
}

// Window returns the configured k-gram size.
func (f *Fingerprinter) Window() int {
	return f.window
}

// tokenCode maps a canonical token value to its integer code.
func tokenCode(t models.Token) uint64 {
	h := fnv.New64a()
	h.Write([]byte(t.Value))
	return h.Sum64() % primeMod
}

// Fingerprint computes the rolling hash of every k-token window. The hash of
// window i is c_i*B^(k-1) + ... + c_(i+k-1) mod M; each step removes the
// leading term and appends the trailing one in O(1) rather than rehashing.
// Sequences shorter than k yield no fingerprints.
func (f *Fingerprinter) Fingerprint(tokens []models.Token) []models.Fingerprint {
	k := f.window
	if len(tokens) < k || k < 1 {
		return nil
	}

	codes := make([]uint64, len(tokens))
	for i, t := range tokens {
		codes[i] = tokenCode(t)
	}

	// B^(k-1) mod M, the weight of the leading term.
	lead := uint64(1)
	for i := 1; i < k; i++ {
		lead = lead * primeBase % primeMod
	}

	var h uint64
	for i := 0; i < k; i++ {
		h = (h*primeBase + codes[i]) % primeMod
	}

	prints := make([]models.Fingerprint, 0, len(tokens)-k+1)
	prints = append(prints, models.Fingerprint{Hash: h, Position: 0})

	for i := k; i < len(tokens); i++ {
		h = (h + primeMod - codes[i-k]*lead%primeMod) % primeMod
		h = (h*primeBase + codes[i]) % primeMod
		prints = append(prints, models.Fingerprint{Hash: h, Position: i - k + 1})
	}
	return prints
}

// HashSet returns the distinct hash values of a fingerprint sequence.
func HashSet(prints []models.Fingerprint) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(prints))
	for _, p := range prints {
		set[p.Hash] = struct{}{}
	}
	return set
}

// Jaccard scores two fingerprint sets as |intersection| / |union| over
// distinct hashes, returning the score and the shared-hash count. Two empty
// sets score 0, not 1: empty submissions are not similar to anything.
func Jaccard(a, b []models.Fingerprint) (float64, int) {
	setA := HashSet(a)
	setB := HashSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0, 0
	}

	shared := 0
	for h := range setA {
		if _, ok := setB[h]; ok {
			shared++
		}
	}

	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union), shared
}

// Matches locates shared token runs between two submissions for fragment
// reporting. Matching windows are verified against the actual tokens and
// extended forward as far as the sequences agree; overlapping runs merge.
func (f *Fingerprinter) Matches(tokensA, tokensB []models.Token) []models.FragmentMatch {
	k := f.window
	printsA := f.Fingerprint(tokensA)
	printsB := f.Fingerprint(tokensB)
	if len(printsA) == 0 || len(printsB) == 0 {
		return nil
	}

	posB := make(map[uint64][]int)
	for _, p := range printsB {
		posB[p.Hash] = append(posB[p.Hash], p.Position)
	}

	var matches []models.FragmentMatch
	for _, p := range printsA {
		for _, start := range posB[p.Hash] {
			if !sameWindow(tokensA, tokensB, p.Position, start, k) {
				continue
			}
			length := k
			for p.Position+length < len(tokensA) &&
				start+length < len(tokensB) &&
				tokensA[p.Position+length].Value == tokensB[start+length].Value {
				length++
			}
			matches = append(matches, models.FragmentMatch{StartA: p.Position, StartB: start, Length: length})
		}
	}
	return mergeMatches(matches)
}

func sameWindow(a, b []models.Token, i, j, k int) bool {
	for n := 0; n < k; n++ {
		if a[i+n].Value != b[j+n].Value {
			return false
		}
	}
	return true
}

func mergeMatches(matches []models.FragmentMatch) []models.FragmentMatch {
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].StartA != matches[j].StartA {
			return matches[i].StartA < matches[j].StartA
		}
		return matches[i].StartB < matches[j].StartB
	})

	merged := matches[:1]
	for _, m := range matches[1:] {
		cur := &merged[len(merged)-1]
		if m.StartA < cur.StartA+cur.Length && m.StartB < cur.StartB+cur.Length {
			if end := m.StartA - cur.StartA + m.Length; end > cur.Length {
				cur.Length = end
			}
			continue
		}
		merged = append(merged, m)
	}
	return merged
}
