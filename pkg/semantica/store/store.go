package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store persists analyses, cached search results and usage events. Every
// table is append-only apart from the explicit delete and clear operations;
// the newest row for a key wins.
type Store interface {
	Close() error

	// Analyses
	LatestAnalysis(ctx context.Context, keywordHash string, since time.Time) (AnalysisRow, bool, error)
	InsertAnalysis(ctx context.Context, row AnalysisRow) (string, error)
	RecentAnalyses(ctx context.Context, limit int) ([]AnalysisRow, error)
	DeleteAnalysis(ctx context.Context, id string) error
	ClearAnalyses(ctx context.Context) (int64, error)

	// Search cache
	LatestSearch(ctx context.Context, keywordHash string, since time.Time) (SearchRow, bool, error)
	InsertSearch(ctx context.Context, row SearchRow) (string, error)
	ClearSearches(ctx context.Context) (int64, error)

	// Usage log
	InsertUsage(ctx context.Context, row UsageRow) (string, error)
	CountUsageSince(ctx context.Context, identity string, since time.Time) (int, error)
}

// AnalysisRow is a stored analysis. Report and Snapshot are raw JSON and
// are validated by the reader.
type AnalysisRow struct {
	ID          string
	KeywordHash string
	Keywords    string
	Report      string
	Snapshot    string
	CreatedAt   time.Time
}

// SearchRow is a cached search response for one keyword.
type SearchRow struct {
	ID          string
	KeywordHash string
	Keyword     string
	Payload     string
	CreatedAt   time.Time
}

// UsageRow records one completed analysis for rate limiting.
type UsageRow struct {
	ID        string
	Identity  string
	Keywords  string
	Tokens    int
	CreatedAt time.Time
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID for t. IDs from one process sort in creation order
// even when timestamps collide.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
