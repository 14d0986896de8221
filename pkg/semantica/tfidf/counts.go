package tfidf

import (
	"sort"
)

// Pair is an unordered term pair stored with A < B.
type Pair struct {
	A, B string
}

// NewPair returns the canonical pair for two terms.
func NewPair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Counter maintains co-occurrence counts across documents
type Counter struct {
	docs  int
	pairs map[Pair]int
}

// NewCounter creates a new co-occurrence counter
func NewCounter() *Counter {
	return &Counter{pairs: make(map[Pair]int)}
}

// AddDocument counts every unordered pair of distinct terms once.
func (c *Counter) AddDocument(terms []string) {
	c.docs++

	sorted := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			c.pairs[Pair{A: sorted[i], B: sorted[j]}]++
		}
	}
}

// Count returns the co-occurrence count for two terms in either order
func (c *Counter) Count(a, b string) int {
	return c.pairs[NewPair(a, b)]
}

// Docs returns the number of documents added
func (c *Counter) Docs() int {
	return c.docs
}

// UniquePairs returns the number of distinct pairs seen
func (c *Counter) UniquePairs() int {
	return len(c.pairs)
}

// Top returns the most frequent pairs, count descending, then by (A, B).
// limit <= 0 returns every pair.
func (c *Counter) Top(limit int) []CoOccurrence {
	out := make([]CoOccurrence, 0, len(c.pairs))
	for p, n := range c.pairs {
		out = append(out, CoOccurrence{TermA: p.A, TermB: p.B, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].TermA != out[j].TermA {
			return out[i].TermA < out[j].TermA
		}
		return out[i].TermB < out[j].TermB
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
