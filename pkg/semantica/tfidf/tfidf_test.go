package tfidf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semantica/pkg/semantica/ingest"
)

func TestIDFStrictlyDecreasing(t *testing.T) {
	for _, n := range []int{1, 2, 5, 30} {
		prev := math.Inf(1)
		for df := 0; df <= n; df++ {
			idf := IDF(n, df)
			assert.Greater(t, idf, 0.0)
			assert.Less(t, idf, prev, "n=%d df=%d", n, df)
			prev = idf
		}
	}
	assert.InDelta(t, 1.0, IDF(4, 4), 1e-12)
}

func TestSingleDocumentFrequency(t *testing.T) {
	engine := New(nil, Options{})

	res := engine.Compute([]string{"cafetera italiana cafetera espresso molinillo"})

	require.Equal(t, 1, res.N)
	require.NotEmpty(t, res.DocFrequency)
	for term, df := range res.DocFrequency {
		assert.Contains(t, []int{0, 1}, df, term)
	}
	for _, ts := range res.Terms {
		assert.LessOrEqual(t, ts.DF, res.N)
	}
}

func TestComputeScores(t *testing.T) {
	engine := New(ingest.NewTokenizer(nil), Options{})

	res := engine.Compute([]string{
		"cafe cafe leche",
		"cafe molido",
	})

	require.Equal(t, 2, res.N)
	assert.Equal(t, map[string]int{"cafe": 2, "leche": 1, "molido": 1}, res.DocFrequency)
	assert.Equal(t, []int{3, 2}, res.DocWordCounts)

	// doc 0: cafe tf=2/3 idf=ln(3/3)+1=1, leche tf=1/3 idf=ln(3/2)+1
	doc0 := res.DocTerms[0]
	require.Len(t, doc0, 2)
	assert.Equal(t, "cafe", doc0[0].Term)
	assert.InDelta(t, 2.0/3, doc0[0].Score, 1e-9)
	assert.Equal(t, "leche", doc0[1].Term)
	assert.InDelta(t, (math.Log(1.5)+1)/3, doc0[1].Score, 1e-9)

	cafe, ok := res.Term("cafe")
	require.True(t, ok)
	assert.InDelta(t, (2.0/3+0.5)/2, cafe.AvgScore, 1e-9)
	assert.InDelta(t, 2.0/3, cafe.MaxScore, 1e-9)
	assert.Equal(t, 2, cafe.DF)

	// leche is absent from doc 1 and still averaged over both documents
	leche, ok := res.Term("leche")
	require.True(t, ok)
	assert.InDelta(t, (math.Log(1.5)+1)/3/2, leche.AvgScore, 1e-9)
}

func TestComputeTermInEveryDocumentIsKept(t *testing.T) {
	engine := New(ingest.NewTokenizer(nil), Options{})

	res := engine.Compute([]string{"cafe", "cafe", "cafe"})

	cafe, ok := res.Term("cafe")
	require.True(t, ok)
	assert.Equal(t, 3, cafe.DF)
	assert.InDelta(t, 1.0, cafe.AvgScore, 1e-9)
}

func TestComputeEmptyCorpus(t *testing.T) {
	engine := New(nil, Options{})

	res := engine.Compute(nil)

	assert.Equal(t, 1, res.N)
	assert.Empty(t, res.Terms)
	assert.Empty(t, res.DocTerms)
	assert.Empty(t, res.Cooccurrences)
}

func TestComputeTiesAreDeterministic(t *testing.T) {
	engine := New(ingest.NewTokenizer(nil), Options{})

	res := engine.Compute([]string{"zeta alfa beta"})

	// equal scores inside a document keep first-occurrence order
	var docOrder []string
	for _, ts := range res.DocTerms[0] {
		docOrder = append(docOrder, ts.Term)
	}
	assert.Equal(t, []string{"zeta", "alfa", "beta"}, docOrder)

	// the summary breaks ties by term
	var summary []string
	for _, ts := range res.Terms {
		summary = append(summary, ts.Term)
	}
	assert.Equal(t, []string{"alfa", "beta", "zeta"}, summary)
}

func TestComputeLimits(t *testing.T) {
	engine := New(ingest.NewTokenizer(nil), Options{DocTopTerms: 2, SummaryTerms: 3, PairTerms: 3, PairLimit: 2})

	res := engine.Compute([]string{"uno1 dos2 tres3 cuatro4 cinco5"})

	assert.Len(t, res.DocTerms[0], 2)
	assert.Len(t, res.Terms, 3)
	// three pair terms give three pairs, capped at two
	assert.Len(t, res.Cooccurrences, 2)
}

func TestCooccurrenceCanonicalOrder(t *testing.T) {
	engine := New(ingest.NewTokenizer(nil), Options{})

	res := engine.Compute([]string{
		"zumo naranja exprimidor",
		"exprimidor zumo",
		"naranja zumo",
	})

	seen := make(map[Pair]bool)
	for _, co := range res.Cooccurrences {
		assert.Less(t, co.TermA, co.TermB)
		assert.False(t, seen[NewPair(co.TermB, co.TermA)], "reverse pair reported")
		seen[Pair{A: co.TermA, B: co.TermB}] = true
	}

	require.NotEmpty(t, res.Cooccurrences)
	assert.Equal(t, CoOccurrence{TermA: "exprimidor", TermB: "zumo", Count: 2}, res.Cooccurrences[0])
	assert.Equal(t, CoOccurrence{TermA: "naranja", TermB: "zumo", Count: 2}, res.Cooccurrences[1])
	assert.Equal(t, CoOccurrence{TermA: "exprimidor", TermB: "naranja", Count: 1}, res.Cooccurrences[2])
}

func TestCounter(t *testing.T) {
	c := NewCounter()
	c.AddDocument([]string{"b", "a", "b"})
	c.AddDocument([]string{"a", "c"})

	assert.Equal(t, 2, c.Docs())
	assert.Equal(t, 1, c.Count("a", "b"))
	assert.Equal(t, 1, c.Count("b", "a"))
	assert.Equal(t, 0, c.Count("b", "c"))
	assert.Equal(t, 2, c.UniquePairs())
	assert.Equal(t, Pair{A: "a", B: "z"}, NewPair("z", "a"))
}

func TestTopAndMatchTerms(t *testing.T) {
	engine := New(nil, Options{})
	text := "La cafetera express y la cafetera italiana: cafetera, molinillo y molinillo."

	assert.Equal(t, []string{"cafetera", "molinillo"}, engine.TopTerms(text, 2))
	assert.Equal(t, []string{"italiana", "cafetera"}, engine.MatchTerms(text, []string{"italiana", "goteo", "cafetera", "express"}, 2))
	assert.Empty(t, engine.MatchTerms("", []string{"cafetera"}, 0))
}
