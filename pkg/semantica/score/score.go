// Package score grades a content sample against an analysis report and
// explains what to change.
package score

import (
	"fmt"
	"math"

	"github.com/cognicore/semantica/pkg/semantica/analysis"
	"github.com/cognicore/semantica/pkg/semantica/ingest"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
)

// Thresholds drive both scoring and insights.
type Thresholds struct {
	MinWords        int     // floor for the required length
	ReadabilityLow  float64 // below this readability is flagged as low
	ReadabilityHigh float64 // above this readability is flagged as very high
	TermWeight      float64
	LengthWeight    float64
}

// DefaultThresholds returns the standard grading thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWords:        analysis.MinAcceptableWords,
		ReadabilityLow:  60,
		ReadabilityHigh: 85,
		TermWeight:      0.6,
		LengthWeight:    0.4,
	}
}

// TermResult is the density outcome for one target term.
type TermResult struct {
	Term        string             `json:"term"`
	Density     float64            `json:"density"`
	Target      analysis.Range     `json:"target"`
	OK          bool               `json:"ok"`
	Occurrences int                `json:"occurrences"`
	Suggested   analysis.WordRange `json:"suggested_occurrences"`
	Score       float64            `json:"score"`
}

// Insight kinds.
const (
	InsightShort           = "short"
	InsightLong            = "long"
	InsightDensity         = "density"
	InsightReadabilityLow  = "readability_low"
	InsightReadabilityHigh = "readability_high"
	InsightOK              = "ok"
)

// Insight is one actionable finding.
type Insight struct {
	Kind    string `json:"kind"`
	Term    string `json:"term,omitempty"`
	Message string `json:"message"`
}

// Result is the full evaluation of one sample.
type Result struct {
	Score          int          `json:"score"`
	Composite      float64      `json:"composite"`
	WordCount      int          `json:"word_count"`
	MinRequired    int          `json:"min_required"`
	MaxRecommended int          `json:"max_recommended"`
	LengthScore    float64      `json:"length_score"`
	LengthOK       bool         `json:"length_ok"`
	Terms          []TermResult `json:"term_stats"`
	Readability    Readability  `json:"readability"`
	Insights       []Insight    `json:"insights"`
}

// Passes reports whether every target was met with readability at least
// readabilityFloor.
func (r *Result) Passes(readabilityFloor float64) bool {
	if !r.LengthOK || r.Readability.Score < readabilityFloor {
		return false
	}
	for _, t := range r.Terms {
		if !t.OK {
			return false
		}
	}
	return true
}

// Scorer evaluates samples with fixed thresholds.
type Scorer struct {
	th Thresholds
}

// New creates a scorer. Zero fields fall back to the defaults.
func New(th Thresholds) *Scorer {
	def := DefaultThresholds()
	if th.MinWords <= 0 {
		th.MinWords = def.MinWords
	}
	if th.ReadabilityLow <= 0 {
		th.ReadabilityLow = def.ReadabilityLow
	}
	if th.ReadabilityHigh <= 0 {
		th.ReadabilityHigh = def.ReadabilityHigh
	}
	if th.TermWeight <= 0 && th.LengthWeight <= 0 {
		th.TermWeight, th.LengthWeight = def.TermWeight, def.LengthWeight
	}
	return &Scorer{th: th}
}

// Thresholds returns the thresholds in use.
func (s *Scorer) Thresholds() Thresholds {
	return s.th
}

// Evaluate grades markup or plain text against rep.
func (s *Scorer) Evaluate(markup string, rep *analysis.Report) Result {
	plain := normalize.Text(markup)
	words := ingest.Words(plain)

	res := Result{
		WordCount:      len(words),
		MinRequired:    rep.MinRequired(s.th.MinWords),
		MaxRecommended: rep.Length.Recommended.Max,
	}
	res.LengthScore, res.LengthOK = LengthScore(res.WordCount, res.MinRequired, res.MaxRecommended)

	termSum := 0.0
	if res.WordCount > 0 {
		for _, target := range rep.SemanticKeywords {
			if target.Term == "" {
				continue
			}
			tr := Density(words, target)
			termSum += tr.Score
			res.Terms = append(res.Terms, tr)
		}
	}
	termMean := 0.0
	if len(res.Terms) > 0 {
		termMean = termSum / float64(len(res.Terms))
	}

	res.Composite = clamp(100*(s.th.TermWeight*termMean+s.th.LengthWeight*res.LengthScore), 0, 100)
	res.Score = int(math.Round(res.Composite))
	res.Readability = Flesch(plain)
	res.Insights = s.insights(&res)
	return res
}

// LengthScore is 1.0 when words lies in [minRequired, maxRecommended]
// (maxRecommended 0 means no ceiling) and words/minRequired clamped to
// [0,1] otherwise. ok reports whether the range was met.
func LengthScore(words, minRequired, maxRecommended int) (score float64, ok bool) {
	ok = words >= minRequired && (maxRecommended == 0 || words <= maxRecommended)
	switch {
	case ok:
		return 1, true
	case minRequired > 0:
		return clamp(float64(words)/float64(minRequired), 0, 1), false
	}
	return 0, false
}

// Density measures one target term over the folded words of a sample.
// Below the target range the score falls linearly towards zero; a 0-0
// target is never met.
func Density(words []string, target analysis.TermTarget) TermResult {
	tr := TermResult{Term: target.Term, Target: target.Density}
	if len(words) == 0 {
		return tr
	}
	tr.Occurrences = ingest.CountPhrase(words, ingest.Words(target.Term))
	density := float64(tr.Occurrences) / float64(len(words)) * 100
	tr.Density = math.Round(density*100) / 100
	tr.OK = target.Density.Contains(density)
	tr.Suggested = analysis.Occurrences(target.Density, len(words))

	switch {
	case tr.OK:
		tr.Score = 1
	case target.Density.Min > 0:
		tr.Score = clamp(1-(target.Density.Min-density)/target.Density.Min, 0, 1)
	}
	return tr
}

func (s *Scorer) insights(res *Result) []Insight {
	var out []Insight
	if res.WordCount < res.MinRequired {
		out = append(out, Insight{
			Kind:    InsightShort,
			Message: fmt.Sprintf("Content is short: %d words (minimum %d).", res.WordCount, res.MinRequired),
		})
	} else if !res.LengthOK {
		out = append(out, Insight{
			Kind:    InsightLong,
			Message: fmt.Sprintf("Content is long: %d words (recommended maximum %d).", res.WordCount, res.MaxRecommended),
		})
	}
	for _, t := range res.Terms {
		if t.OK {
			continue
		}
		verb := "Increase"
		if !t.Target.IsZero() && t.Density > t.Target.Max {
			verb = "Reduce"
		}
		msg := fmt.Sprintf("%s the density of %q to %s (now %s%%).", verb, t.Term, t.Target, formatPercent(t.Density))
		if !t.Suggested.IsZero() {
			msg += fmt.Sprintf(" Aim for %s mentions.", t.Suggested)
		}
		out = append(out, Insight{Kind: InsightDensity, Term: t.Term, Message: msg})
	}
	switch r := res.Readability.Score; {
	case r < s.th.ReadabilityLow:
		out = append(out, Insight{
			Kind:    InsightReadabilityLow,
			Message: fmt.Sprintf("Readability is low (%.1f Flesch). Shorten sentences and prefer common words.", r),
		})
	case r > s.th.ReadabilityHigh:
		out = append(out, Insight{
			Kind:    InsightReadabilityHigh,
			Message: fmt.Sprintf("Readability is very high (%.1f Flesch). Consider adding technical depth.", r),
		})
	}
	if len(out) == 0 {
		out = append(out, Insight{Kind: InsightOK, Message: "Content meets every target."})
	}
	return out
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%g", v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
