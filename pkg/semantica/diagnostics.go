package semantica

import (
	"sort"
	"time"

	"github.com/cognicore/semantica/pkg/semantica/analysis"
	"github.com/cognicore/semantica/pkg/semantica/cascade"
	"github.com/cognicore/semantica/pkg/semantica/corpus"
	"github.com/cognicore/semantica/pkg/semantica/harvest"
	"github.com/cognicore/semantica/pkg/semantica/ingest"
)

// Per-unit prices used for cost estimates, in USD.
const (
	SearchCost          = 0.025
	AnthropicTokenPrice = 3.0 / 1_000_000
	OpenAITokenPrice    = 1.84 / 1_000_000
)

// topTermsPerDocument bounds the terms listed per document summary.
const topTermsPerDocument = 8

// Diagnostics explains how one analysis was produced.
type Diagnostics struct {
	Mode      cascade.Mode              `json:"fallback_mode"`
	ToppedUp  int                       `json:"topped_up"`
	Searches  SearchStats               `json:"searches"`
	Blocked   []string                  `json:"blocked_urls,omitempty"`
	Failures  []harvest.Failure         `json:"failures,omitempty"`
	Skipped   []string                  `json:"skipped_urls,omitempty"`
	Sources   map[corpus.SourceType]int `json:"sources"`
	Documents []DocumentSummary         `json:"documents"`
	Tokens    int                       `json:"tokens"`
	Provider  string                    `json:"provider,omitempty"`
	Degraded  bool                      `json:"degraded"`
	Cost      Cost                      `json:"cost"`
	Elapsed   time.Duration             `json:"elapsed"`
}

// SearchStats counts search lookups of one analysis.
type SearchStats struct {
	Calls     int `json:"calls"`
	CacheHits int `json:"cache_hits"`
	URLs      int `json:"urls"`
}

// DocumentSummary describes one corpus document.
type DocumentSummary struct {
	URL      string            `json:"url,omitempty"`
	Title    string            `json:"title"`
	Keyword  string            `json:"keyword"`
	Source   corpus.SourceType `json:"source_type"`
	Words    int               `json:"words"`
	TopTerms []string          `json:"top_terms"`
	Tone     string            `json:"tone"`
}

// Cost is an estimate of what an analysis spent.
type Cost struct {
	Searches float64 `json:"searches"`
	Tokens   float64 `json:"tokens"`
	Total    float64 `json:"total"`
}

// EstimateCost prices search calls and model tokens. Unknown providers are
// priced like OpenAI.
func EstimateCost(searches, tokens int, provider string) Cost {
	price := OpenAITokenPrice
	if provider == "anthropic" {
		price = AnthropicTokenPrice
	}
	c := Cost{
		Searches: float64(searches) * SearchCost,
		Tokens:   float64(tokens) * price,
	}
	c.Total = c.Searches + c.Tokens
	return c
}

func (e *Engine) summarize(docs []corpus.Document) []DocumentSummary {
	out := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		out[i] = DocumentSummary{
			URL:      d.URL,
			Title:    d.Title,
			Keyword:  d.Keyword,
			Source:   d.Source,
			Words:    ingest.CountWords(d.Content),
			TopTerms: e.terms.TopTerms(d.Content, topTermsPerDocument),
			Tone:     analysis.Tone(d.Content),
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
