// Package harvest fetches candidate pages concurrently and extracts their
// readable text.
package harvest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/internal/metrics"
	"github.com/cognicore/semantica/pkg/semantica/corpus"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
)

const (
	defaultMaxURLs   = 30
	minURLs          = 10
	defaultMaxLength = 12000
	defaultMinChars  = 400
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "SemanticaBot/1.0"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 5 << 20
)

// nonContentSelectors are removed before body text is read.
const nonContentSelectors = "script, style, nav, header, footer, aside, noscript"

// Options configures a Harvester.
type Options struct {
	MaxURLs     int           // cap on URLs fetched, never below 10
	MaxLength   int           // bytes of text kept per document
	MinChars    int           // shorter documents are skipped
	Timeout     time.Duration // per request
	Concurrency int           // 0 fetches every URL at once
	UserAgent   string
	Client      *http.Client
	Logger      logger.Logger
	Metrics     *metrics.Metrics
}

// Failure records why a URL produced no document.
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Result is the outcome of one harvest. Documents follow input order.
type Result struct {
	Documents []corpus.Document `json:"documents"`
	Failures  []Failure         `json:"failures"`
	Skipped   []string          `json:"skipped"`
}

// Harvester fetches pages and turns them into scraped documents.
type Harvester struct {
	opts   Options
	client *http.Client
	log    logger.Logger
}

// New creates a harvester.
func New(opts Options) *Harvester {
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = defaultMaxURLs
	}
	opts.MaxURLs = max(opts.MaxURLs, minURLs)
	if opts.MaxLength <= 0 {
		opts.MaxLength = defaultMaxLength
	}
	if opts.MinChars <= 0 {
		opts.MinChars = defaultMinChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Harvester{
		opts:   opts,
		client: client,
		log:    logger.OrNop(opts.Logger).With(logger.String("component", "harvest")),
	}
}

// slot is what one fetch goroutine produces.
type slot struct {
	doc     *corpus.Document
	failure string
	thin    bool
}

// Harvest fetches urls concurrently and waits for all of them. attribute maps
// a URL to the keyword that surfaced it and may be nil. Individual failures
// never abort the batch.
func (h *Harvester) Harvest(ctx context.Context, urls []string, attribute func(string) string) Result {
	if len(urls) > h.opts.MaxURLs {
		urls = urls[:h.opts.MaxURLs]
	}

	slots := make([]slot, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	if h.opts.Concurrency > 0 {
		g.SetLimit(h.opts.Concurrency)
	}
	for i, u := range urls {
		g.Go(func() error {
			slots[i] = h.fetch(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, s := range slots {
		u := urls[i]
		switch {
		case s.failure != "":
			h.log.Info("fetch failed", logger.String("url", u), logger.String("reason", s.failure))
			h.opts.Metrics.Fetch("failed")
			res.Failures = append(res.Failures, Failure{URL: u, Reason: s.failure})
		case s.thin:
			h.opts.Metrics.Fetch("thin")
			res.Skipped = append(res.Skipped, u)
		default:
			h.opts.Metrics.Fetch("ok")
			doc := *s.doc
			if attribute != nil {
				doc.Keyword = attribute(u)
			}
			res.Documents = append(res.Documents, doc)
		}
	}
	h.log.Debug("harvest complete",
		logger.Int("urls", len(urls)),
		logger.Int("documents", len(res.Documents)),
		logger.Int("failures", len(res.Failures)),
		logger.Int("skipped", len(res.Skipped)))
	return res
}

func (h *Harvester) fetch(ctx context.Context, u string) slot {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return slot{failure: err.Error()}
	}
	req.Header.Set("User-Agent", h.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(req)
	if err != nil {
		return slot{failure: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return slot{failure: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return slot{failure: err.Error()}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return slot{failure: "empty body"}
	}

	title, text, err := Extract(body)
	if err != nil {
		return slot{failure: err.Error()}
	}
	text = normalize.Truncate(text, h.opts.MaxLength)
	if utf8.RuneCountInString(text) < h.opts.MinChars {
		return slot{thin: true}
	}
	return slot{doc: &corpus.Document{
		URL:     u,
		Title:   title,
		Content: text,
		Source:  corpus.SourceScraped,
	}}
}

// Extract returns the first <title> and the readable body text of a page.
// Non-content blocks are removed, entities decoded and whitespace collapsed.
func Extract(page []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title = normalize.Whitespace(doc.Find("title").First().Text())

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find(nonContentSelectors).Remove()
	markup, err := root.Html()
	if err != nil {
		return title, "", fmt.Errorf("render body: %w", err)
	}
	return title, normalize.Text(markup), nil
}
