package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/pkg/semantica/corpus"
	"github.com/cognicore/semantica/pkg/semantica/serp"
	"github.com/cognicore/semantica/pkg/semantica/textgen"
	"github.com/cognicore/semantica/pkg/semantica/tfidf"
)

const systemPrompt = "You are an SEO expert. Respond with valid JSON only."

// Limits bound how much corpus context goes into the report prompt.
type Limits struct {
	Documents    int // default 12
	ExcerptChars int // default 1200
	Terms        int // default 30
}

// Builder asks a text-generation client for a report and falls back to the
// statistical derivation when it cannot get a valid one.
type Builder struct {
	Client      textgen.Client
	Logger      logger.Logger
	Limits      Limits
	Temperature *float64 // nil means 0.2; zero is honored
	MaxTokens   int      // default 4096
}

// BuildInput is the evidence a report is built from.
type BuildInput struct {
	Keywords  []string
	Documents []corpus.Document
	Searches  []serp.Result
	Result    tfidf.Result
	Stats     Stats
}

// Built is a report plus what it cost to produce.
type Built struct {
	Report   *Report
	Tokens   int
	Provider string
}

// Build produces a report. It never fails: a missing client, a provider
// error or an invalid payload yields a degraded statistical report carrying
// the cause. Length targets always come from the corpus statistics.
func (b *Builder) Build(ctx context.Context, in BuildInput) Built {
	log := logger.OrNop(b.Logger)

	var (
		out Built
		err error
	)
	if b.Client == nil {
		err = errors.New("analysis: no text generation client")
	} else {
		out, err = b.request(ctx, in)
	}
	if err != nil {
		log.Warn("Report generation failed, deriving from statistics", logger.Error(err))
		texts := make([]string, len(in.Documents))
		for i, d := range in.Documents {
			texts[i] = d.Content
		}
		out.Report = Derive(DeriveInput{
			Keywords: in.Keywords,
			Texts:    texts,
			Result:   in.Result,
			Stats:    in.Stats,
		})
		out.Report.Degraded = true
		out.Report.Error = err.Error()
	}
	out.Report.Length = in.Stats.Length()
	return out
}

func (b *Builder) request(ctx context.Context, in BuildInput) (Built, error) {
	prompt, err := b.prompt(in)
	if err != nil {
		return Built{}, err
	}
	temp := 0.2
	if b.Temperature != nil {
		temp = *b.Temperature
	}
	maxTokens := b.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	resp, err := b.Client.Complete(ctx, textgen.Request{
		Prompt:      prompt,
		System:      systemPrompt,
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Built{}, err
	}
	out := Built{Tokens: resp.Tokens, Provider: resp.Provider}
	rep, err := DecodeReport([]byte(textgen.Clean(resp.Text)))
	if err != nil {
		return out, err
	}
	out.Report = rep
	return out, nil
}

type promptDocument struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Excerpt string `json:"content_excerpt"`
}

type promptContext struct {
	Keywords      []string             `json:"keywords"`
	Searches      []serp.Result        `json:"serp"`
	Documents     []promptDocument     `json:"documents"`
	Terms         []tfidf.TermStat     `json:"tfidf_terms"`
	Cooccurrences []tfidf.CoOccurrence `json:"cooccurrences"`
	Stats         Stats                `json:"word_stats"`
}

const reportShape = `{
  "semantic_keywords": [
    {"term": "...", "tfidf_score": 0.0123, "recommended_density": "1.2-1.8%", "suggested_mentions": "10-14"}
  ],
  "length": {"average_words": 2300, "recommended_range": "2200-2600", "min_competitive": 2000},
  "intent": {"intent": "informational", "tone": "educational", "depth": "intermediate", "emotional_context": "..."},
  "clusters": [
    {"cluster": "...", "salient_score": 85, "top_coverage": "4/5", "depth_words": 400, "subtopics": ["..."]}
  ],
  "structure": {
    "h1": "...",
    "sections": [{"h2": "...", "h3": ["..."], "words": 320, "order": 1}]
  },
  "opportunities": {
    "content_gaps": ["..."],
    "missing_formats": ["..."],
    "unanswered_questions": ["..."],
    "differentiation_ideas": ["..."]
  }
}`

func (b *Builder) prompt(in BuildInput) (string, error) {
	lim := b.Limits
	if lim.Documents <= 0 {
		lim.Documents = 12
	}
	if lim.ExcerptChars <= 0 {
		lim.ExcerptChars = 1200
	}
	if lim.Terms <= 0 {
		lim.Terms = 30
	}

	pc := promptContext{
		Keywords:      in.Keywords,
		Searches:      in.Searches,
		Terms:         in.Result.Terms[:min(len(in.Result.Terms), lim.Terms)],
		Cooccurrences: in.Result.Cooccurrences,
		Stats:         in.Stats,
	}
	for _, d := range in.Documents[:min(len(in.Documents), lim.Documents)] {
		pc.Documents = append(pc.Documents, promptDocument{
			URL:     d.URL,
			Title:   d.Title,
			Excerpt: excerpt(d.Content, lim.ExcerptChars),
		})
	}
	ctxJSON, err := json.Marshal(pc)
	if err != nil {
		return "", fmt.Errorf("analysis: encode prompt context: %w", err)
	}

	return "You are a senior SEO analyst. Use the context to produce a strict JSON report " +
		"for Spanish-language content.\n\nContext (JSON):\n" + string(ctxJSON) +
		"\n\nReturn only JSON with this structure:\n" + reportShape +
		"\n\nRules: justify terms and clusters with the TF-IDF data. Write every term, heading and idea in Spanish. " +
		"Do not include any text outside the JSON.", nil
}

func excerpt(s string, chars int) string {
	r := []rune(s)
	if len(r) <= chars {
		return s
	}
	return string(r[:chars])
}
