package semantica

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semantica/pkg/semantica/cascade"
	"github.com/cognicore/semantica/pkg/semantica/config"
	"github.com/cognicore/semantica/pkg/semantica/corpus"
	"github.com/cognicore/semantica/pkg/semantica/generate"
	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
	"github.com/cognicore/semantica/pkg/semantica/serp"
	"github.com/cognicore/semantica/pkg/semantica/store"
	"github.com/cognicore/semantica/pkg/semantica/store/memstore"
	"github.com/cognicore/semantica/pkg/semantica/textgen"
)

const modelReport = `{
  "semantic_keywords": [
    {"term": "cafetera", "tfidf_score": 0.2, "recommended_density": "2-3%", "suggested_mentions": "20-30"}
  ],
  "length": {"average_words": 100, "recommended_range": "90-110", "min_competitive": 80},
  "intent": {"intent": "commercial", "tone": "educational"},
  "structure": {"h1": "Cafeteras", "sections": [{"h2": "Tipos", "h3": ["Italiana"], "words": 300, "order": 1}]},
  "opportunities": {"content_gaps": ["mantenimiento"]}
}`

type fakeSearcher struct {
	results map[string][]serp.Item
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, keyword string, _ serp.Locale) ([]serp.Item, error) {
	f.calls++
	return f.results[keyword], nil
}

type fakeClient struct {
	text     string
	tokens   int
	provider string
	err      error
	calls    int
}

func (f *fakeClient) Complete(context.Context, textgen.Request) (textgen.Response, error) {
	f.calls++
	if f.err != nil {
		return textgen.Response{}, f.err
	}
	return textgen.Response{Text: f.text, Tokens: f.tokens, Provider: f.provider}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newEngine(t *testing.T, opts Options) (*Engine, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	if opts.Store == nil {
		opts.Store = st
	}
	if opts.Config.Scoring.MinWords == 0 {
		opts.Config = config.Default()
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e, st
}

func competitorServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := strings.Repeat("La cafetera italiana prepara un espresso intenso cada mañana. ", 20)
	mux := http.NewServeMux()
	for _, path := range []string{"/guia", "/comparativa"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "<html><head><title>Cafeteras %s</title></head><body><p>%s</p></body></html>", r.URL.Path, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{Config: config.Default()})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestAnalyzePlaceholderScenario(t *testing.T) {
	ctx := context.Background()
	searcher := &fakeSearcher{}
	e, st := newEngine(t, Options{Searcher: searcher})

	res, err := e.Analyze(ctx, AnalyzeRequest{Keywords: " Cafetera , ESPRESSO,cafetera"})
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, []string{"cafetera", "espresso"}, res.Record.Keywords)
	assert.Equal(t, normalize.KeywordSet{"cafetera", "espresso"}.Hash(), res.Record.KeywordHash)
	assert.NotEmpty(t, res.Record.ID)

	require.NotNil(t, res.Diagnostics)
	assert.Equal(t, cascade.ModeKeywords, res.Diagnostics.Mode)
	assert.Equal(t, map[corpus.SourceType]int{corpus.SourcePlaceholder: 2}, res.Diagnostics.Sources)
	assert.Equal(t, 2, res.Diagnostics.Searches.Calls)
	assert.True(t, res.Diagnostics.Degraded)
	assert.InDelta(t, 0.05, res.Diagnostics.Cost.Total, 1e-9)

	require.NotNil(t, res.Record.Report)
	assert.True(t, res.Record.Report.Degraded)
	assert.NotEmpty(t, res.Record.Report.SemanticKeywords)
	assert.Equal(t, 600, res.Record.Report.Length.Average)
	assert.Equal(t, 2, res.Record.Snapshot.N)

	usage := st.Usage()
	require.Len(t, usage, 1)
	assert.Equal(t, DefaultIdentity, usage[0].Identity)
	assert.Equal(t, "cafetera, espresso", usage[0].Keywords)
	assert.Equal(t, 1, res.Usage.Used)
	assert.Equal(t, 9, res.Usage.Remaining)
}

func TestAnalyzeScrapedWithModelReport(t *testing.T) {
	ctx := context.Background()
	srv := competitorServer(t)
	searcher := &fakeSearcher{results: map[string][]serp.Item{
		"cafetera italiana": {
			{Title: "Guía", URL: srv.URL + "/guia", Snippet: "Cómo elegir"},
			{Title: "Comparativa", URL: srv.URL + "/comparativa", Snippet: "Las mejores"},
			{Title: "Pin", URL: "https://www.pinterest.com/cafeteras", Snippet: "Ideas"},
		},
	}}
	analyzer := &fakeClient{text: "```json\n" + modelReport + "\n```", tokens: 1000, provider: "anthropic"}
	reg := prometheus.NewRegistry()
	e, _ := newEngine(t, Options{
		Searcher:   searcher,
		Analyzer:   analyzer,
		HTTPClient: srv.Client(),
		Registerer: reg,
	})

	res, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "cafetera italiana", Identity: "10.0.0.1"})
	require.NoError(t, err)

	diag := res.Diagnostics
	require.NotNil(t, diag)
	assert.Equal(t, cascade.ModeScraped, diag.Mode)
	assert.Equal(t, []string{"https://www.pinterest.com/cafeteras"}, diag.Blocked)
	assert.Empty(t, diag.Failures)
	assert.Equal(t, 2, diag.Sources[corpus.SourceScraped])
	assert.Equal(t, "anthropic", diag.Provider)
	assert.Equal(t, 1000, diag.Tokens)
	assert.InDelta(t, 0.025+0.003, diag.Cost.Total, 1e-9)

	require.NotEmpty(t, diag.Documents)
	first := diag.Documents[0]
	assert.Equal(t, srv.URL+"/guia", first.URL)
	assert.Equal(t, "cafetera italiana", first.Keyword)
	assert.Equal(t, corpus.SourceScraped, first.Source)
	assert.Equal(t, 180, first.Words)
	assert.Contains(t, first.TopTerms, "cafetera")

	rep := res.Record.Report
	assert.False(t, rep.Degraded)
	assert.Equal(t, "cafetera", rep.SemanticKeywords[0].Term)
	// length targets come from the corpus, not the model
	assert.Equal(t, 600, rep.Length.Average)
	assert.Equal(t, 540, rep.Length.Recommended.Min)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Analyses.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.Fetches.WithLabelValues("ok")))
}

func TestAnalyzeServesCache(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	searcher := &fakeSearcher{}
	e, st := newEngine(t, Options{Searcher: searcher, Now: clk.now})

	first, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "molinillo"})
	require.NoError(t, err)

	// a refresh bypasses the analysis cache; the search cache still serves the keyword
	refreshed, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "molinillo", Refresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.Cached)
	assert.NotEqual(t, first.Record.ID, refreshed.Record.ID)
	assert.Equal(t, 1, refreshed.Diagnostics.Searches.CacheHits)

	clk.t = clk.t.Add(29 * 24 * time.Hour)
	second, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "MOLINILLO"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Nil(t, second.Diagnostics)
	assert.Equal(t, refreshed.Record.ID, second.Record.ID)
	assert.Equal(t, 1, searcher.calls)
	assert.Len(t, st.Usage(), 2)

	// past the window the analysis is recomputed
	clk.t = clk.t.Add(2 * 24 * time.Hour)
	stale, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "molinillo"})
	require.NoError(t, err)
	assert.False(t, stale.Cached)
	assert.Equal(t, 2, searcher.calls)
}

func TestAnalyzeRecomputesCorruptCache(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t, Options{})
	_, err := st.InsertAnalysis(ctx, store.AnalysisRow{
		KeywordHash: normalize.KeywordSet{"molinillo"}.Hash(),
		Keywords:    "molinillo",
		Report:      `{"semantic_keywords":`,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	res, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "molinillo"})

	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestAnalyzeInputErrors(t *testing.T) {
	e, st := newEngine(t, Options{})

	for _, raw := range []string{"", " , ,", "   "} {
		_, err := e.Analyze(context.Background(), AnalyzeRequest{Keywords: raw})
		assert.ErrorIs(t, err, internalerr.ErrInvalidInput, "%q", raw)
	}
	assert.Empty(t, st.Usage())
}

func TestAnalyzeRateLimitBoundary(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.RateLimit.DailyLimit = 2
	e, _ := newEngine(t, Options{Config: cfg})

	_, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "uno", Identity: "client"})
	require.NoError(t, err)
	res, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "dos", Identity: "client"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Usage.Remaining)

	_, err = e.Analyze(ctx, AnalyzeRequest{Keywords: "tres", Identity: "client"})
	assert.ErrorIs(t, err, internalerr.ErrRateLimited)

	// other identities keep their own budget
	_, err = e.Analyze(ctx, AnalyzeRequest{Keywords: "tres", Identity: "other"})
	assert.NoError(t, err)
}

type failingInsert struct {
	*memstore.Store
}

func (failingInsert) InsertAnalysis(context.Context, store.AnalysisRow) (string, error) {
	return "", errors.New("disk full")
}

func TestAnalyzeStoreFailureIsFatal(t *testing.T) {
	mem := memstore.New()
	e, _ := newEngine(t, Options{Store: failingInsert{mem}})

	_, err := e.Analyze(context.Background(), AnalyzeRequest{Keywords: "cafetera"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, mem.Usage())
}

func TestReportLookup(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t, Options{})

	_, err := e.Report(ctx, "")
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	_, err = e.Report(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	_, err = st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "broken", Keywords: "x", Report: `{}`})
	require.NoError(t, err)
	_, err = e.Report(ctx, "broken")
	assert.ErrorIs(t, err, internalerr.ErrInvalidReport)

	res, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "cafetera"})
	require.NoError(t, err)
	rec, err := e.Report(ctx, res.Record.KeywordHash)
	require.NoError(t, err)
	assert.Equal(t, res.Record.ID, rec.ID)
	assert.Equal(t, []string{"cafetera"}, rec.Keywords)
}

func TestScoreContent(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t, Options{})
	_, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h", Keywords: "cafetera", Report: modelReport})
	require.NoError(t, err)

	_, err = e.ScoreContent(ctx, "  ", "h")
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	res, err := e.ScoreContent(ctx, "<p>La cafetera italiana.</p>", "h")
	require.NoError(t, err)
	assert.Equal(t, 3, res.WordCount)
	assert.Equal(t, 600, res.MinRequired)
	assert.False(t, res.LengthOK)
	require.Len(t, res.Terms, 1)
	assert.Equal(t, "cafetera", res.Terms[0].Term)
}

func TestGenerateAndOptimizeContent(t *testing.T) {
	ctx := context.Background()
	writer := &fakeClient{err: errors.New("provider down")}
	e, st := newEngine(t, Options{Writer: writer})
	_, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h", Keywords: "cafetera", Report: modelReport})
	require.NoError(t, err)

	out, err := e.GenerateContent(ctx, "h")
	assert.ErrorIs(t, err, internalerr.ErrGeneration)
	require.NotNil(t, out)
	assert.Equal(t, generate.StateFailed, out.State)
	assert.Empty(t, out.HTML)
	assert.Equal(t, 1, writer.calls)

	_, err = e.GenerateContent(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	_, err = e.OptimizeContent(ctx, "", "h")
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	writer.err = nil
	writer.text = "<p>La cafetera italiana.</p>"
	opt, err := e.OptimizeContent(ctx, "<p>Hola</p>", "h")
	require.NoError(t, err)
	assert.Equal(t, "<p>La cafetera italiana.</p>", opt.HTML)
	assert.NotNil(t, opt.Before)
	assert.NotNil(t, opt.After)
}

func TestGenerateDoesNotFallBackToSecondProvider(t *testing.T) {
	ctx := context.Background()
	openaiCalls, anthropicCalls := 0, 0
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openaiCalls++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
	}))
	t.Cleanup(openai.Close)
	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicCalls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"<p>La cafetera italiana.</p>"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	t.Cleanup(anthropic.Close)

	cfg := config.Default()
	cfg.LLM.OpenAI.APIKey = "sk"
	cfg.LLM.OpenAI.BaseURL = openai.URL
	cfg.LLM.Anthropic.APIKey = "ak"
	cfg.LLM.Anthropic.BaseURL = anthropic.URL + "/"
	_, writer := Providers(cfg.LLM)

	e, st := newEngine(t, Options{Config: cfg, Writer: writer})
	_, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h", Keywords: "cafetera", Report: modelReport})
	require.NoError(t, err)

	out, err := e.GenerateContent(ctx, "h")
	assert.ErrorIs(t, err, internalerr.ErrGeneration)
	require.NotNil(t, out)
	assert.Equal(t, generate.StateFailed, out.State)
	assert.Equal(t, 1, openaiCalls)
	assert.Zero(t, anthropicCalls)
}

func TestReportMaintenance(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t, Options{Searcher: &fakeSearcher{}})

	a, err := e.Analyze(ctx, AnalyzeRequest{Keywords: "uno"})
	require.NoError(t, err)
	_, err = e.Analyze(ctx, AnalyzeRequest{Keywords: "dos"})
	require.NoError(t, err)
	_, err = st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "bad", Keywords: "tres", Report: "nope"})
	require.NoError(t, err)

	recent, err := e.RecentReports(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"tres"}, recent[0].Keywords)
	assert.False(t, recent[0].Valid)
	assert.True(t, recent[2].Valid)
	assert.True(t, recent[2].Degraded)

	assert.ErrorIs(t, e.DeleteReport(ctx, ""), internalerr.ErrInvalidInput)
	require.NoError(t, e.DeleteReport(ctx, a.Record.ID))
	assert.ErrorIs(t, e.DeleteReport(ctx, a.Record.ID), internalerr.ErrNotFound)

	n, err := e.ClearAnalysisCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = e.ClearSearchCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		provider string
		want     float64
	}{
		{"anthropic", 0.075 + 3},
		{"openai", 0.075 + 1.84},
		{"", 0.075 + 1.84},
	}
	for _, tt := range tests {
		c := EstimateCost(3, 1_000_000, tt.provider)
		assert.InDelta(t, 0.075, c.Searches, 1e-9, tt.provider)
		assert.InDelta(t, tt.want, c.Total, 1e-9, tt.provider)
	}
}
