package analysis

import (
	"math"
	"strings"

	"github.com/cognicore/semantica/pkg/semantica/ingest"
	"github.com/cognicore/semantica/pkg/semantica/tfidf"
)

// MinAcceptableWords is the floor applied to corpus length statistics.
const MinAcceptableWords = 600

// Stats summarizes corpus word counts.
type Stats struct {
	Average     int       `json:"avg_words"`
	Min         int       `json:"min_words"`
	Max         int       `json:"max_words"`
	Docs        int       `json:"doc_count"`
	Recommended WordRange `json:"recommended_range"`
}

// Length turns the statistics into report length targets.
func (s Stats) Length() Length {
	return Length{
		Average:        s.Average,
		Recommended:    s.Recommended,
		MinCompetitive: s.Min,
	}
}

// LengthStats computes word-count statistics over texts. Average and Min are
// raised to floor; the recommended range is 90%-110% of the average.
func LengthStats(texts []string, floor int) Stats {
	st := Stats{Docs: len(texts)}
	if len(texts) > 0 {
		total := 0
		st.Min = math.MaxInt
		for _, t := range texts {
			n := ingest.CountWords(t)
			total += n
			st.Min = min(st.Min, n)
			st.Max = max(st.Max, n)
		}
		st.Average = int(math.Round(float64(total) / float64(len(texts))))
	}
	st.Average = max(st.Average, floor)
	st.Min = max(st.Min, floor)
	if st.Average > 0 {
		// integer arithmetic keeps 800 -> 720-880 exact
		st.Recommended = WordRange{
			Min: st.Average * 9 / 10,
			Max: (st.Average*11 + 9) / 10,
		}
	}
	return st
}

// Tone labels.
const (
	ToneCommercial    = "commercial"
	ToneEducational   = "educational"
	ToneOpinion       = "opinion"
	ToneInformational = "informational"
)

var toneSignals = []struct {
	tone    string
	phrases []string
}{
	{ToneCommercial, []string{"precio", "oferta", "compra", "comprar", "envio", "gratis", "descuento", "tienda"}},
	{ToneEducational, []string{"guia", "tutorial", "paso a paso", "aprende", "como", "explicacion"}},
	{ToneOpinion, []string{"opiniones", "resenas", "review", "valoracion"}},
}

// Tone guesses the register of a text from signal words. The first matching
// group wins; text without signals is informational.
func Tone(text string) string {
	words := ingest.Words(text)
	for _, group := range toneSignals {
		for _, p := range group.phrases {
			if ingest.CountPhrase(words, strings.Fields(p)) > 0 {
				return group.tone
			}
		}
	}
	return ToneInformational
}

// DeriveInput is what a statistical report is computed from.
type DeriveInput struct {
	Keywords []string
	Texts    []string
	Result   tfidf.Result
	Stats    Stats
	Terms    int // semantic keywords to emit, default 12
}

// Derive builds a report from corpus statistics alone. Keyword phrases come
// first, then the strongest TF-IDF terms. Each density target is the mean
// corpus density of the term, widened by 20% either side.
func Derive(in DeriveInput) *Report {
	limit := in.Terms
	if limit <= 0 {
		limit = 12
	}

	docs := make([][]string, len(in.Texts))
	for i, t := range in.Texts {
		docs[i] = ingest.Words(t)
	}
	target := in.Stats.Recommended.Midpoint()
	if target == 0 {
		target = in.Stats.Average
	}

	rep := &Report{Length: in.Stats.Length()}
	seen := make(map[string]bool)
	add := func(term string, score float64) {
		folded := strings.Join(ingest.Words(term), " ")
		if folded == "" || seen[folded] || len(rep.SemanticKeywords) >= limit {
			return
		}
		seen[folded] = true
		density := meanDensity(docs, strings.Fields(folded))
		rng := Range{Min: round2(density * 0.8), Max: round2(density * 1.2)}
		rep.SemanticKeywords = append(rep.SemanticKeywords, TermTarget{
			Term:     term,
			TFIDF:    score,
			Density:  rng,
			Mentions: Occurrences(rng, target),
		})
	}
	for _, k := range in.Keywords {
		score := 0.0
		if ts, ok := in.Result.Term(strings.Join(ingest.Words(k), " ")); ok {
			score = ts.AvgScore
		}
		add(k, score)
	}
	for _, ts := range in.Result.Terms {
		add(ts.Term, ts.AvgScore)
	}

	tone := ToneInformational
	if len(in.Texts) > 0 {
		tone = Tone(strings.Join(in.Texts, " "))
	}
	rep.Intent = Intent{Intent: intentFor(tone), Tone: tone}

	if len(in.Keywords) > 0 {
		rep.Structure.H1 = in.Keywords[0]
	}
	for _, co := range in.Result.Cooccurrences {
		if len(rep.Structure.Sections) == 5 {
			break
		}
		rep.Structure.Sections = append(rep.Structure.Sections, Section{
			H2:    co.TermA + " y " + co.TermB,
			Order: len(rep.Structure.Sections) + 1,
		})
	}
	if n := len(rep.Structure.Sections); n > 0 {
		per := target / n
		for i := range rep.Structure.Sections {
			rep.Structure.Sections[i].Words = per
		}
	}
	return rep
}

// Occurrences converts a density range into an occurrence span for a text
// of words words: ceil(min*words/100) to floor(max*words/100).
func Occurrences(r Range, words int) WordRange {
	if r.IsZero() || words <= 0 {
		return WordRange{}
	}
	lo := int(math.Ceil(r.Min * float64(words) / 100))
	hi := int(math.Floor(r.Max * float64(words) / 100))
	return WordRange{Min: lo, Max: max(lo, hi)}
}

func meanDensity(docs [][]string, phrase []string) float64 {
	if len(docs) == 0 {
		return 0
	}
	sum := 0.0
	for _, words := range docs {
		if len(words) == 0 {
			continue
		}
		sum += float64(ingest.CountPhrase(words, phrase)) / float64(len(words)) * 100
	}
	return sum / float64(len(docs))
}

func intentFor(tone string) string {
	switch tone {
	case ToneCommercial:
		return "transactional"
	case ToneOpinion:
		return "commercial investigation"
	default:
		return "informational"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
