// Package tfidf ranks the terms of a corpus by TF-IDF and counts which
// salient terms appear together.
package tfidf

import (
	"math"
	"sort"

	"github.com/cognicore/semantica/pkg/semantica/ingest"
)

// Options bounds the tables produced by Compute.
type Options struct {
	DocTopTerms  int // terms kept per document
	SummaryTerms int // terms kept in the corpus summary
	PairTerms    int // top terms per document fed to co-occurrence
	PairLimit    int // pairs reported
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		DocTopTerms:  30,
		SummaryTerms: 50,
		PairTerms:    20,
		PairLimit:    20,
	}
}

// TermScore is a term's TF-IDF score inside one document.
type TermScore struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// TermStat aggregates a term across the corpus. AvgScore is averaged over
// every document, counting zero where the term is absent.
type TermStat struct {
	Term     string  `json:"term"`
	AvgScore float64 `json:"avg_score"`
	MaxScore float64 `json:"max_score"`
	DF       int     `json:"df"`
}

// CoOccurrence counts documents whose top terms include both TermA and TermB.
// TermA < TermB always holds.
type CoOccurrence struct {
	TermA string `json:"term_a"`
	TermB string `json:"term_b"`
	Count int    `json:"count"`
}

// Result holds everything computed over one corpus.
type Result struct {
	N             int            `json:"n"`
	Terms         []TermStat     `json:"terms"`
	DocTerms      [][]TermScore  `json:"doc_terms"`
	DocFrequency  map[string]int `json:"doc_frequency"`
	DocWordCounts []int          `json:"doc_word_counts"` // tokens kept per document
	Cooccurrences []CoOccurrence `json:"cooccurrences"`
}

// Term returns the summary entry for term, if it made the summary.
func (r *Result) Term(term string) (TermStat, bool) {
	for _, t := range r.Terms {
		if t.Term == term {
			return t, true
		}
	}
	return TermStat{}, false
}

// IDF is the smoothed inverse document frequency ln((n+1)/(df+1)) + 1.
// It is positive for every df <= n and strictly decreasing in df.
func IDF(n, df int) float64 {
	return math.Log(float64(n+1)/float64(df+1)) + 1
}

// Engine computes TF-IDF tables with a fixed tokenizer.
type Engine struct {
	tokenizer *ingest.Tokenizer
	opts      Options
}

// New creates an engine. A nil tokenizer uses the Spanish stoplist.
func New(tokenizer *ingest.Tokenizer, opts Options) *Engine {
	if tokenizer == nil {
		tokenizer = ingest.Spanish()
	}
	def := DefaultOptions()
	if opts.DocTopTerms <= 0 {
		opts.DocTopTerms = def.DocTopTerms
	}
	if opts.SummaryTerms <= 0 {
		opts.SummaryTerms = def.SummaryTerms
	}
	if opts.PairTerms <= 0 {
		opts.PairTerms = def.PairTerms
	}
	if opts.PairLimit <= 0 {
		opts.PairLimit = def.PairLimit
	}
	return &Engine{tokenizer: tokenizer, opts: opts}
}

// docCounts keeps term counts in order of first occurrence.
type docCounts struct {
	order  []string
	counts map[string]int
	total  int
}

func (e *Engine) count(text string) docCounts {
	dc := docCounts{counts: make(map[string]int)}
	for tok := range e.tokenizer.All(text) {
		if _, ok := dc.counts[tok]; !ok {
			dc.order = append(dc.order, tok)
		}
		dc.counts[tok]++
		dc.total++
	}
	return dc
}

// Compute runs the full TF-IDF pass over texts, one per document.
// An empty corpus is treated as N=1 with empty tables.
func (e *Engine) Compute(texts []string) Result {
	n := len(texts)
	if n == 0 {
		n = 1
	}

	docs := make([]docCounts, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		docs[i] = e.count(text)
		for _, term := range docs[i].order {
			df[term]++
		}
	}

	res := Result{
		N:             n,
		DocTerms:      make([][]TermScore, len(docs)),
		DocFrequency:  df,
		DocWordCounts: make([]int, len(docs)),
	}

	sums := make(map[string]float64, len(df))
	maxes := make(map[string]float64, len(df))
	counter := NewCounter()

	for i, dc := range docs {
		res.DocWordCounts[i] = dc.total
		denom := float64(max(dc.total, 1))

		scores := make([]TermScore, 0, len(dc.order))
		for _, term := range dc.order {
			s := float64(dc.counts[term]) / denom * IDF(n, df[term])
			scores = append(scores, TermScore{Term: term, Score: s})
			sums[term] += s
			if s > maxes[term] {
				maxes[term] = s
			}
		}
		// Stable sort keeps first-occurrence order among equal scores
		sort.SliceStable(scores, func(a, b int) bool {
			return scores[a].Score > scores[b].Score
		})

		pairTerms := make([]string, 0, e.opts.PairTerms)
		for _, ts := range scores[:min(len(scores), e.opts.PairTerms)] {
			pairTerms = append(pairTerms, ts.Term)
		}
		counter.AddDocument(pairTerms)

		res.DocTerms[i] = scores[:min(len(scores), e.opts.DocTopTerms)]
	}

	terms := make([]TermStat, 0, len(df))
	for term, d := range df {
		terms = append(terms, TermStat{
			Term:     term,
			AvgScore: sums[term] / float64(n),
			MaxScore: maxes[term],
			DF:       d,
		})
	}
	sort.Slice(terms, func(a, b int) bool {
		if terms[a].AvgScore != terms[b].AvgScore {
			return terms[a].AvgScore > terms[b].AvgScore
		}
		return terms[a].Term < terms[b].Term
	})
	if len(terms) > e.opts.SummaryTerms {
		terms = terms[:e.opts.SummaryTerms]
	}
	res.Terms = terms
	res.Cooccurrences = counter.Top(e.opts.PairLimit)
	return res
}

// TopTerms returns the most frequent tokens of one text by raw count,
// ties broken by first occurrence.
func (e *Engine) TopTerms(text string, limit int) []string {
	dc := e.count(text)
	terms := append([]string(nil), dc.order...)
	sort.SliceStable(terms, func(a, b int) bool {
		return dc.counts[terms[a]] > dc.counts[terms[b]]
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// MatchTerms returns which of terms occur in text, in the order given,
// stopping after limit matches (limit <= 0 means no limit).
func (e *Engine) MatchTerms(text string, terms []string, limit int) []string {
	dc := e.count(text)
	var out []string
	for _, t := range terms {
		if dc.counts[t] == 0 {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
