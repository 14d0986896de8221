// Package analysis models the competitive report derived from a corpus and
// builds it either from a language model or from the raw statistics.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/tfidf"
)

// TermTarget is a term the content should use and how densely.
type TermTarget struct {
	Term     string    `json:"term"`
	TFIDF    float64   `json:"tfidf_score"`
	Density  Range     `json:"recommended_density"`
	Mentions WordRange `json:"suggested_mentions"`
}

// Length holds the word-count targets, always taken from the real corpus.
type Length struct {
	Average        int       `json:"average_words"`
	Recommended    WordRange `json:"recommended_range"`
	MinCompetitive int       `json:"min_competitive"`
}

// Intent describes the search intent and the register competitors use.
type Intent struct {
	Intent  string `json:"intent"`
	Tone    string `json:"tone"`
	Depth   string `json:"depth,omitempty"`
	Emotion string `json:"emotional_context,omitempty"`
}

// Cluster groups related subtopics.
type Cluster struct {
	Name      string   `json:"cluster"`
	Salience  float64  `json:"salient_score,omitempty"`
	Coverage  string   `json:"top_coverage,omitempty"`
	Words     int      `json:"depth_words,omitempty"`
	Subtopics []string `json:"subtopics,omitempty"`
}

// Section is one H2 block of the proposed outline.
type Section struct {
	H2    string   `json:"h2"`
	H3    []string `json:"h3,omitempty"`
	Words int      `json:"words,omitempty"`
	Order int      `json:"order"`
}

// Structure is the proposed document outline.
type Structure struct {
	H1       string    `json:"h1"`
	Sections []Section `json:"sections"`
}

// Opportunities lists what competitors miss.
type Opportunities struct {
	ContentGaps     []string `json:"content_gaps,omitempty"`
	MissingFormats  []string `json:"missing_formats,omitempty"`
	OpenQuestions   []string `json:"unanswered_questions,omitempty"`
	Differentiators []string `json:"differentiation_ideas,omitempty"`
}

// Report is the validated analysis payload stored per keyword set.
type Report struct {
	SemanticKeywords []TermTarget  `json:"semantic_keywords"`
	Length           Length        `json:"length"`
	Intent           Intent        `json:"intent"`
	Clusters         []Cluster     `json:"clusters,omitempty"`
	Structure        Structure     `json:"structure"`
	Opportunities    Opportunities `json:"opportunities"`

	// Degraded is set when the report was derived statistically because the
	// model could not produce one. Error holds the model failure.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Validate checks the fields every consumer relies on.
func (r *Report) Validate() error {
	if len(r.SemanticKeywords) == 0 {
		return fmt.Errorf("%w: no semantic keywords", internalerr.ErrInvalidReport)
	}
	for i, t := range r.SemanticKeywords {
		if strings.TrimSpace(t.Term) == "" {
			return fmt.Errorf("%w: semantic keyword %d has no term", internalerr.ErrInvalidReport, i)
		}
	}
	for i, s := range r.Structure.Sections {
		if strings.TrimSpace(s.H2) == "" {
			return fmt.Errorf("%w: section %d has no h2", internalerr.ErrInvalidReport, i)
		}
	}
	return nil
}

// MinRequired is the smallest acceptable word count for content graded
// against r: the largest of floor, the competitive minimum and the
// recommended range start.
func (r *Report) MinRequired(floor int) int {
	return max(floor, r.Length.MinCompetitive, r.Length.Recommended.Min)
}

// DecodeReport parses and validates a stored or generated report.
func DecodeReport(raw []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidReport, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Snapshot is the statistical evidence stored next to a report.
type Snapshot struct {
	N             int                  `json:"n"`
	Terms         []tfidf.TermStat     `json:"terms"`
	Cooccurrences []tfidf.CoOccurrence `json:"cooccurrences"`
	Stats         Stats                `json:"stats"`
}

// NewSnapshot keeps the corpus-level parts of a TF-IDF result.
func NewSnapshot(res tfidf.Result, stats Stats) Snapshot {
	return Snapshot{
		N:             res.N,
		Terms:         res.Terms,
		Cooccurrences: res.Cooccurrences,
		Stats:         stats,
	}
}

// Record is one stored analysis. The newest record for a hash wins.
type Record struct {
	ID          string    `json:"id"`
	KeywordHash string    `json:"keyword_hash"`
	Keywords    []string  `json:"keywords"`
	Report      *Report   `json:"report"`
	Snapshot    Snapshot  `json:"snapshot"`
	CreatedAt   time.Time `json:"created_at"`
}
