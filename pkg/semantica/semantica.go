// Package semantica ties the content intelligence pipeline together: keyword
// analysis over live search results, content scoring and guided generation.
package semantica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/internal/metrics"
	"github.com/cognicore/semantica/pkg/semantica/analysis"
	"github.com/cognicore/semantica/pkg/semantica/cascade"
	"github.com/cognicore/semantica/pkg/semantica/config"
	"github.com/cognicore/semantica/pkg/semantica/corpus"
	"github.com/cognicore/semantica/pkg/semantica/generate"
	"github.com/cognicore/semantica/pkg/semantica/harvest"
	"github.com/cognicore/semantica/pkg/semantica/ingest"
	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
	"github.com/cognicore/semantica/pkg/semantica/ratelimit"
	"github.com/cognicore/semantica/pkg/semantica/score"
	"github.com/cognicore/semantica/pkg/semantica/serp"
	"github.com/cognicore/semantica/pkg/semantica/store"
	"github.com/cognicore/semantica/pkg/semantica/textgen"
	"github.com/cognicore/semantica/pkg/semantica/tfidf"
)

// DefaultIdentity is charged when a request names no client.
const DefaultIdentity = "local"

// Options configures an Engine. Store is required; every collaborator may be
// nil, in which case the pipeline degrades instead of failing.
type Options struct {
	Config    config.Config
	Store     store.Store
	Searcher  serp.Searcher
	Analyzer  textgen.Client // builds reports
	Writer    textgen.Client // writes and repairs content
	Tokenizer *ingest.Tokenizer

	HTTPClient *http.Client // harvester transport
	Logger     logger.Logger
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// Engine is the programmatic surface of the pipeline.
type Engine struct {
	cfg       config.Config
	store     store.Store
	retriever *serp.Retriever
	filter    harvest.Filter
	harvester *harvest.Harvester
	terms     *tfidf.Engine
	builder   *analysis.Builder
	scorer    *score.Scorer
	generator *generate.Generator
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	log       logger.Logger
	now       func() time.Time
}

// New wires an engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("semantica: store required: %w", internalerr.ErrInvalidConfig)
	}
	cfg := opts.Config
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logger.OrNop(opts.Logger)
	m := metrics.New(opts.Registerer)

	tokenizer := opts.Tokenizer
	if tokenizer == nil {
		tokenizer = ingest.Spanish()
	}

	if opts.Searcher == nil {
		log.Warn("No search provider configured, analyses fall back to placeholders")
	}
	if opts.Analyzer == nil {
		log.Warn("No analysis provider configured, reports are derived from statistics")
	}

	scorer := score.New(score.Thresholds{
		MinWords:        cfg.Scoring.MinWords,
		ReadabilityLow:  cfg.Scoring.ReadabilityLow,
		ReadabilityHigh: cfg.Scoring.ReadabilityHigh,
	})

	return &Engine{
		cfg:   cfg,
		store: opts.Store,
		retriever: serp.NewRetriever(opts.Searcher, opts.Store, serp.Options{
			Window:     cfg.Search.CacheWindow,
			PerKeyword: cfg.Search.PerKeyword,
			Locale:     serp.Locale{Language: cfg.Search.Language, Country: cfg.Search.Country},
			Rate:       rate.Limit(cfg.Search.Rate),
			Burst:      cfg.Search.Burst,
			Now:        now,
			Logger:     log,
			Metrics:    m,
		}),
		filter: harvest.DefaultFilter(),
		harvester: harvest.New(harvest.Options{
			MaxURLs:     cfg.Harvest.MaxURLs,
			MaxLength:   cfg.Harvest.MaxLength,
			MinChars:    cfg.Harvest.MinChars,
			Timeout:     cfg.Harvest.Timeout,
			Concurrency: cfg.Harvest.Concurrency,
			UserAgent:   cfg.Harvest.UserAgent,
			Client:      opts.HTTPClient,
			Logger:      log,
			Metrics:     m,
		}),
		terms: tfidf.New(tokenizer, tfidf.Options{}),
		builder: &analysis.Builder{
			Client: opts.Analyzer,
			Logger: log,
			Limits: analysis.Limits{
				Documents:    cfg.Analysis.PromptDocuments,
				ExcerptChars: cfg.Analysis.ExcerptChars,
				Terms:        cfg.Analysis.PromptTerms,
			},
			Temperature: &cfg.LLM.Temperature,
		},
		scorer: scorer,
		generator: generate.New(opts.Writer, scorer, generate.Options{
			ReadabilityFloor: cfg.Scoring.ReadabilityFloor,
			Temperature:      &cfg.LLM.Temperature,
			Logger:           log,
			Metrics:          m,
		}),
		limiter: ratelimit.New(opts.Store, cfg.RateLimit.DailyLimit, cfg.RateLimit.Window, now),
		metrics: m,
		log:     log,
		now:     now,
	}, nil
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// AnalyzeRequest asks for an analysis of a comma separated keyword list.
type AnalyzeRequest struct {
	Keywords string
	Identity string
	Refresh  bool // ignore a cached analysis
}

// AnalyzeResult is a stored analysis plus how it was produced. Diagnostics
// is nil for cached results.
type AnalyzeResult struct {
	Record      analysis.Record  `json:"record"`
	Cached      bool             `json:"cached"`
	Usage       ratelimit.Status `json:"usage"`
	Diagnostics *Diagnostics     `json:"diagnostics,omitempty"`
}

// Analyze runs the full analysis pipeline for one keyword set, or returns the
// cached analysis when a fresh one exists.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	started := e.now()
	keywords, err := normalize.ParseKeywords(req.Keywords)
	if err != nil {
		return nil, err
	}
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		identity = DefaultIdentity
	}
	log := e.log.With(logger.String("keywords", keywords.String()), logger.String("identity", identity))

	usage, err := e.limiter.Check(ctx, identity)
	switch {
	case errors.Is(err, internalerr.ErrRateLimited):
		e.metrics.Analysis("rate_limited")
		return nil, err
	case err != nil:
		log.Warn("Usage check failed, continuing", logger.Error(err))
	}

	hash := keywords.Hash()
	if !req.Refresh {
		if rec, ok := e.cached(ctx, hash, log); ok {
			e.metrics.Analysis("cached")
			return &AnalyzeResult{Record: rec, Cached: true, Usage: usage}, nil
		}
	}

	retrieval, err := e.retriever.Retrieve(ctx, keywords)
	if err != nil {
		e.metrics.Analysis("failed")
		return nil, fmt.Errorf("semantica: retrieve: %w", err)
	}
	kept, blocked := e.filter.Apply(retrieval.URLs)
	harvested := e.harvester.Harvest(ctx, kept, retrieval.KeywordFor)

	outcome := cascade.Standard(keywords, retrieval.Results, blocked, cascade.Options{
		MaxLength: e.cfg.Harvest.MaxLength,
	}).Resolve(harvested.Documents)
	docs := corpus.New(outcome.Documents...)
	for source, n := range docs.Sources() {
		e.metrics.CorpusDocuments(string(source), n)
	}

	texts := docs.Texts()
	result := e.terms.Compute(texts)
	stats := analysis.LengthStats(texts, e.cfg.Scoring.MinWords)
	built := e.builder.Build(ctx, analysis.BuildInput{
		Keywords:  keywords,
		Documents: docs.Documents(),
		Searches:  retrieval.Results,
		Result:    result,
		Stats:     stats,
	})

	rec := analysis.Record{
		KeywordHash: hash,
		Keywords:    keywords,
		Report:      built.Report,
		Snapshot:    analysis.NewSnapshot(result, stats),
		CreatedAt:   e.now(),
	}
	rec.ID, err = e.insert(ctx, rec)
	if err != nil {
		e.metrics.Analysis("failed")
		return nil, err
	}

	if err := e.limiter.Record(ctx, identity, keywords.String(), built.Tokens); err != nil {
		log.Warn("Failed to record usage", logger.Error(err))
	} else if usage.Limit > 0 {
		usage.Used++
		usage.Remaining = max(usage.Limit-usage.Used, 0)
	}

	if built.Report.Degraded {
		e.metrics.Analysis("degraded")
	} else {
		e.metrics.Analysis("created")
	}

	diag := &Diagnostics{
		Mode:      outcome.Mode,
		ToppedUp:  outcome.ToppedUp,
		Searches:  SearchStats{Calls: retrieval.Calls, CacheHits: retrieval.CacheHits, URLs: len(retrieval.URLs)},
		Blocked:   sortedKeys(blocked),
		Failures:  harvested.Failures,
		Skipped:   harvested.Skipped,
		Sources:   docs.Sources(),
		Documents: e.summarize(docs.Documents()),
		Tokens:    built.Tokens,
		Provider:  built.Provider,
		Degraded:  built.Report.Degraded,
		Cost:      EstimateCost(retrieval.Calls, built.Tokens, built.Provider),
		Elapsed:   e.now().Sub(started),
	}
	log.Info("Analysis stored",
		logger.String("id", rec.ID),
		logger.String("mode", string(outcome.Mode)),
		logger.Int("documents", docs.Len()),
		logger.Int("tokens", built.Tokens),
		logger.Bool("degraded", built.Report.Degraded))

	return &AnalyzeResult{Record: rec, Usage: usage, Diagnostics: diag}, nil
}

func (e *Engine) cached(ctx context.Context, hash string, log logger.Logger) (analysis.Record, bool) {
	since := e.now().Add(-e.cfg.Analysis.CacheWindow)
	if e.cfg.Analysis.CacheWindow <= 0 {
		since = e.now().Add(-30 * 24 * time.Hour)
	}
	row, found, err := e.store.LatestAnalysis(ctx, hash, since)
	if err != nil {
		log.Warn("Analysis cache read failed", logger.Error(err))
		return analysis.Record{}, false
	}
	if !found {
		return analysis.Record{}, false
	}
	rec, err := decodeRow(row)
	if err != nil {
		log.Warn("Cached analysis is unreadable, recomputing", logger.String("id", row.ID), logger.Error(err))
		return analysis.Record{}, false
	}
	return rec, true
}

func (e *Engine) insert(ctx context.Context, rec analysis.Record) (string, error) {
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return "", fmt.Errorf("semantica: encode report: %w", err)
	}
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return "", fmt.Errorf("semantica: encode snapshot: %w", err)
	}
	id, err := e.store.InsertAnalysis(ctx, store.AnalysisRow{
		KeywordHash: rec.KeywordHash,
		Keywords:    strings.Join(rec.Keywords, ", "),
		Report:      string(report),
		Snapshot:    string(snapshot),
		CreatedAt:   rec.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("semantica: store analysis: %w", err)
	}
	return id, nil
}

func decodeRow(row store.AnalysisRow) (analysis.Record, error) {
	rep, err := analysis.DecodeReport([]byte(row.Report))
	if err != nil {
		return analysis.Record{}, err
	}
	var snap analysis.Snapshot
	if row.Snapshot != "" {
		if err := json.Unmarshal([]byte(row.Snapshot), &snap); err != nil {
			return analysis.Record{}, fmt.Errorf("%w: snapshot: %v", internalerr.ErrInvalidReport, err)
		}
	}
	return analysis.Record{
		ID:          row.ID,
		KeywordHash: row.KeywordHash,
		Keywords:    normalize.Keywords(row.Keywords),
		Report:      rep,
		Snapshot:    snap,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// Report returns the newest analysis stored under hash.
func (e *Engine) Report(ctx context.Context, hash string) (analysis.Record, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return analysis.Record{}, fmt.Errorf("semantica: keyword hash required: %w", internalerr.ErrInvalidInput)
	}
	row, found, err := e.store.LatestAnalysis(ctx, hash, time.Time{})
	if err != nil {
		return analysis.Record{}, fmt.Errorf("semantica: load analysis: %w", err)
	}
	if !found {
		return analysis.Record{}, fmt.Errorf("semantica: analysis %s: %w", hash, internalerr.ErrNotFound)
	}
	return decodeRow(row)
}

// ScoreContent grades html against the analysis stored under hash.
func (e *Engine) ScoreContent(ctx context.Context, html, hash string) (*score.Result, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("semantica: content required: %w", internalerr.ErrInvalidInput)
	}
	rec, err := e.Report(ctx, hash)
	if err != nil {
		return nil, err
	}
	res := e.scorer.Evaluate(html, rec.Report)
	return &res, nil
}

// GenerateContent writes an article for the analysis stored under hash.
func (e *Engine) GenerateContent(ctx context.Context, hash string) (*generate.Outcome, error) {
	rec, err := e.Report(ctx, hash)
	if err != nil {
		return nil, err
	}
	return e.generator.Generate(ctx, rec.Keywords, rec.Report)
}

// OptimizeContent rewrites html toward the analysis stored under hash.
func (e *Engine) OptimizeContent(ctx context.Context, html, hash string) (*generate.Optimization, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("semantica: content required: %w", internalerr.ErrInvalidInput)
	}
	rec, err := e.Report(ctx, hash)
	if err != nil {
		return nil, err
	}
	return e.generator.Optimize(ctx, html, rec.Keywords, rec.Report)
}

// ReportSummary lists a stored analysis without its payload.
type ReportSummary struct {
	ID          string    `json:"id"`
	KeywordHash string    `json:"keyword_hash"`
	Keywords    []string  `json:"keywords"`
	Degraded    bool      `json:"degraded"`
	Valid       bool      `json:"valid"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecentReports lists the newest stored analyses. Unreadable rows are listed
// with Valid unset so they can be deleted.
func (e *Engine) RecentReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	rows, err := e.store.RecentAnalyses(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("semantica: recent analyses: %w", err)
	}
	out := make([]ReportSummary, 0, len(rows))
	for _, row := range rows {
		sum := ReportSummary{
			ID:          row.ID,
			KeywordHash: row.KeywordHash,
			Keywords:    normalize.Keywords(row.Keywords),
			CreatedAt:   row.CreatedAt,
		}
		if rep, err := analysis.DecodeReport([]byte(row.Report)); err == nil {
			sum.Valid = true
			sum.Degraded = rep.Degraded
		}
		out = append(out, sum)
	}
	return out, nil
}

// DeleteReport removes one stored analysis by ID.
func (e *Engine) DeleteReport(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("semantica: analysis id required: %w", internalerr.ErrInvalidInput)
	}
	return e.store.DeleteAnalysis(ctx, id)
}

// ClearAnalysisCache drops every stored analysis.
func (e *Engine) ClearAnalysisCache(ctx context.Context) (int64, error) {
	n, err := e.store.ClearAnalyses(ctx)
	if err != nil {
		return 0, err
	}
	e.log.Info("Analysis cache cleared", logger.Int("rows", int(n)))
	return n, nil
}

// ClearSearchCache drops every cached search response.
func (e *Engine) ClearSearchCache(ctx context.Context) (int64, error) {
	n, err := e.store.ClearSearches(ctx)
	if err != nil {
		return 0, err
	}
	e.log.Info("Search cache cleared", logger.Int("rows", int(n)))
	return n, nil
}
