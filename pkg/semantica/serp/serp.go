// Package serp retrieves organic search results per keyword through a
// time-boxed cache.
package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/internal/metrics"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
	"github.com/cognicore/semantica/pkg/semantica/store"
)

// Item is one organic result.
type Item struct {
	Title   string `json:"title"`
	URL     string `json:"link"`
	Snippet string `json:"snippet"`
}

// Result is the ordered result list for one keyword.
type Result struct {
	Keyword string `json:"keyword"`
	Items   []Item `json:"items"`
}

// Locale selects the search market.
type Locale struct {
	Language string // hl
	Country  string // gl
}

// Searcher is the external search collaborator. It is called at most once
// per keyword and cache miss.
type Searcher interface {
	Search(ctx context.Context, keyword string, loc Locale) ([]Item, error)
}

// Cache is the part of store.Store the retriever needs.
type Cache interface {
	LatestSearch(ctx context.Context, keywordHash string, since time.Time) (store.SearchRow, bool, error)
	InsertSearch(ctx context.Context, row store.SearchRow) (string, error)
}

// Options configures a Retriever.
type Options struct {
	Window     time.Duration // cache freshness, default 7 days
	PerKeyword int           // items kept per keyword, default 5
	Locale     Locale
	Rate       rate.Limit // outbound searches per second, 0 means unlimited
	Burst      int
	Now        func() time.Time
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// Retriever resolves keywords to search results, consulting the cache first.
type Retriever struct {
	searcher Searcher
	cache    Cache
	opts     Options
	limiter  *rate.Limiter
	log      logger.Logger
}

// NewRetriever creates a retriever.
func NewRetriever(searcher Searcher, cache Cache, opts Options) *Retriever {
	if opts.Window <= 0 {
		opts.Window = 7 * 24 * time.Hour
	}
	if opts.PerKeyword <= 0 {
		opts.PerKeyword = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locale == (Locale{}) {
		opts.Locale = Locale{Language: "es", Country: "es"}
	}
	limit := opts.Rate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Retriever{
		searcher: searcher,
		cache:    cache,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		log:      logger.OrNop(opts.Logger).With(logger.String("component", "serp")),
	}
}

// Retrieval is the outcome of resolving a keyword set.
type Retrieval struct {
	Results     []Result            `json:"results"`
	URLs        []string            `json:"urls"`
	KeywordURLs map[string][]string `json:"keyword_urls"`
	Calls       int                 `json:"calls"` // searcher invocations, failed ones included
	CacheHits   int                 `json:"cache_hits"`

	owner map[string]string
}

// KeywordFor returns the first keyword whose results contained url.
func (r *Retrieval) KeywordFor(url string) string {
	return r.owner[url]
}

// Retrieve resolves every keyword. Search failures are logged and leave that
// keyword with no items; only context cancellation aborts.
func (r *Retriever) Retrieve(ctx context.Context, keywords normalize.KeywordSet) (*Retrieval, error) {
	out := &Retrieval{
		KeywordURLs: make(map[string][]string),
		owner:       make(map[string]string),
	}

	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, cached := r.lookup(ctx, kw)
		if cached {
			out.CacheHits++
		} else {
			var called bool
			items, called = r.fetch(ctx, kw)
			if called {
				out.Calls++
			}
		}

		kept := make([]Item, 0, r.opts.PerKeyword)
		for _, it := range items {
			if it.URL == "" {
				continue
			}
			kept = append(kept, it)
			if len(kept) == r.opts.PerKeyword {
				break
			}
		}
		out.Results = append(out.Results, Result{Keyword: kw, Items: kept})

		for _, it := range kept {
			out.KeywordURLs[kw] = append(out.KeywordURLs[kw], it.URL)
			if _, seen := out.owner[it.URL]; !seen {
				out.owner[it.URL] = kw
				out.URLs = append(out.URLs, it.URL)
			}
		}
	}
	return out, nil
}

// lookup returns the cached items for kw. Store errors and corrupt rows
// count as misses.
func (r *Retriever) lookup(ctx context.Context, kw string) ([]Item, bool) {
	since := r.opts.Now().Add(-r.opts.Window)
	row, found, err := r.cache.LatestSearch(ctx, normalize.HashKeyword(kw), since)
	if err != nil {
		r.log.Warn("search cache read failed", logger.String("keyword", kw), logger.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var items []Item
	if err := json.Unmarshal([]byte(row.Payload), &items); err != nil {
		r.log.Warn("corrupt search cache row", logger.String("keyword", kw), logger.String("id", row.ID), logger.Error(err))
		return nil, false
	}
	r.opts.Metrics.Search("cache_hit")
	return items, true
}

// fetch calls the searcher once and caches a successful response. The flag
// reports whether the searcher was actually invoked.
func (r *Retriever) fetch(ctx context.Context, kw string) ([]Item, bool) {
	if r.searcher == nil {
		r.log.Warn("no search provider configured", logger.String("keyword", kw))
		r.opts.Metrics.Search("failed")
		return nil, false
	}
	if err := r.limiter.Wait(ctx); err != nil {
		r.log.Warn("search pacing aborted", logger.String("keyword", kw), logger.Error(err))
		r.opts.Metrics.Search("failed")
		return nil, false
	}

	items, err := r.searcher.Search(ctx, kw, r.opts.Locale)
	if err != nil {
		r.log.Warn("search failed", logger.String("keyword", kw), logger.Error(err))
		r.opts.Metrics.Search("failed")
		return nil, true
	}
	r.opts.Metrics.Search("fetched")

	payload, err := json.Marshal(items)
	if err != nil {
		r.log.Warn("encode search result", logger.String("keyword", kw), logger.Error(err))
		return items, true
	}
	_, err = r.cache.InsertSearch(ctx, store.SearchRow{
		KeywordHash: normalize.HashKeyword(kw),
		Keyword:     kw,
		Payload:     string(payload),
		CreatedAt:   r.opts.Now(),
	})
	if err != nil {
		r.log.Warn("search cache write failed", logger.String("keyword", kw), logger.Error(err))
	}
	return items, true
}

// String describes the retrieval for logs.
func (r *Retrieval) String() string {
	return fmt.Sprintf("%d urls, %d calls, %d cache hits", len(r.URLs), r.Calls, r.CacheHits)
}
