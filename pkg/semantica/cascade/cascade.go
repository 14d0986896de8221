// Package cascade guarantees a non-empty corpus by falling back from scraped
// pages to search snippets to the keywords themselves.
package cascade

import (
	"strings"

	"github.com/cognicore/semantica/pkg/semantica/corpus"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
	"github.com/cognicore/semantica/pkg/semantica/serp"
)

// Mode names the tier that produced the primary corpus.
type Mode string

const (
	ModeScraped  Mode = "scraped"
	ModeSnippets Mode = "snippets"
	ModeKeywords Mode = "keywords"
)

// Tier is one fallback strategy. Apply receives the documents gathered so
// far and returns its own documents, or none.
type Tier struct {
	Mode  Mode
	Apply func(current []corpus.Document) []corpus.Document
}

// Outcome is the resolved corpus.
type Outcome struct {
	Documents []corpus.Document `json:"documents"`
	Mode      Mode              `json:"mode"`
	ToppedUp  int               `json:"topped_up"`
}

// Options tunes snippet tiers.
type Options struct {
	SnippetLimit int // snippet documents per keyword in the fallback tier, default 5
	TopUpLimit   int // snippet documents per keyword considered by top-up, default 10
	Quota        int // documents per keyword top-up aims for, default 5
	MaxLength    int // bytes of snippet content kept, default 12000
}

// Cascade resolves a corpus from an ordered list of tiers.
type Cascade struct {
	tiers []Tier
	topUp func(current []corpus.Document) []corpus.Document
}

// New builds a cascade from explicit tiers and an optional top-up pass.
func New(tiers []Tier, topUp func([]corpus.Document) []corpus.Document) *Cascade {
	return &Cascade{tiers: tiers, topUp: topUp}
}

// Standard builds the scraped, snippets, keywords cascade over search
// results. blocked holds URLs excluded by the block-list.
func Standard(keywords normalize.KeywordSet, results []serp.Result, blocked map[string]bool, opts Options) *Cascade {
	if opts.SnippetLimit <= 0 {
		opts.SnippetLimit = 5
	}
	if opts.TopUpLimit <= 0 {
		opts.TopUpLimit = 10
	}
	if opts.Quota <= 0 {
		opts.Quota = 5
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = 12000
	}

	tiers := []Tier{
		{Mode: ModeScraped, Apply: func(current []corpus.Document) []corpus.Document {
			return current
		}},
		{Mode: ModeSnippets, Apply: func([]corpus.Document) []corpus.Document {
			return SnippetDocuments(results, opts.SnippetLimit, opts.MaxLength, blocked)
		}},
		{Mode: ModeKeywords, Apply: func([]corpus.Document) []corpus.Document {
			return PlaceholderDocuments(keywords)
		}},
	}
	topUp := func(current []corpus.Document) []corpus.Document {
		return TopUp(current, SnippetDocuments(results, opts.TopUpLimit, opts.MaxLength, blocked), opts.Quota)
	}
	return New(tiers, topUp)
}

// Resolve applies tiers in order until one yields documents, then runs the
// top-up pass.
func (c *Cascade) Resolve(scraped []corpus.Document) Outcome {
	var out Outcome
	for _, tier := range c.tiers {
		docs := tier.Apply(scraped)
		if len(docs) > 0 {
			out.Documents = docs
			out.Mode = tier.Mode
			break
		}
	}
	if c.topUp != nil {
		before := len(out.Documents)
		out.Documents = c.topUp(out.Documents)
		out.ToppedUp = len(out.Documents) - before
	}
	return out
}

// SnippetDocuments turns search results into title+snippet documents, at most
// limit per keyword, skipping blocked URLs and empty snippets.
func SnippetDocuments(results []serp.Result, limit, maxLength int, blocked map[string]bool) []corpus.Document {
	var docs []corpus.Document
	for _, r := range results {
		count := 0
		for _, it := range r.Items {
			if limit > 0 && count >= limit {
				break
			}
			if it.URL != "" && blocked[it.URL] {
				continue
			}
			content := strings.TrimSpace(it.Title + " " + it.Snippet)
			if content == "" {
				continue
			}
			docs = append(docs, corpus.Document{
				URL:     it.URL,
				Title:   it.Title,
				Content: normalize.Truncate(content, maxLength),
				Keyword: r.Keyword,
				Source:  corpus.SourceSnippet,
			})
			count++
		}
	}
	return docs
}

// PlaceholderDocuments returns one document per keyword whose content is the
// keyword itself.
func PlaceholderDocuments(keywords normalize.KeywordSet) []corpus.Document {
	docs := make([]corpus.Document, 0, len(keywords))
	for _, k := range keywords {
		docs = append(docs, corpus.Document{
			Title:   k,
			Content: k,
			Keyword: k,
			Source:  corpus.SourcePlaceholder,
		})
	}
	return docs
}

// TopUp appends candidates for keywords holding fewer than quota documents,
// never repeating a URL already present.
func TopUp(current, candidates []corpus.Document, quota int) []corpus.Document {
	c := corpus.New(current...)
	for _, d := range candidates {
		if d.Keyword == "" || c.CountFor(d.Keyword) >= quota {
			continue
		}
		if d.URL != "" && c.Has(d.URL) {
			continue
		}
		c.Add(d)
	}
	return c.Documents()
}
