package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS semantic_analysis (
	id TEXT PRIMARY KEY,
	keyword_hash TEXT NOT NULL,
	keywords TEXT NOT NULL,
	result_json TEXT NOT NULL,
	tfidf_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_hash ON semantic_analysis(keyword_hash, created_at);
CREATE INDEX IF NOT EXISTS idx_analysis_created ON semantic_analysis(created_at);

CREATE TABLE IF NOT EXISTS serp_cache (
	id TEXT PRIMARY KEY,
	keyword_hash TEXT NOT NULL,
	keyword TEXT NOT NULL,
	response_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_serp_hash ON serp_cache(keyword_hash, created_at);

CREATE TABLE IF NOT EXISTS usage_log (
	id TEXT PRIMARY KEY,
	identity TEXT NOT NULL,
	keywords TEXT NOT NULL,
	tokens INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_identity ON usage_log(identity, created_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// stamp stores times as unix nanoseconds; anything before the epoch,
// including the zero time, maps to 0.
func stamp(t time.Time) int64 {
	if t.Before(time.Unix(0, 0)) {
		return 0
	}
	return t.UTC().UnixNano()
}

func unstamp(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// LatestAnalysis returns the newest analysis for hash created at or after since.
func (s *sqliteStore) LatestAnalysis(ctx context.Context, keywordHash string, since time.Time) (store.AnalysisRow, bool, error) {
	var (
		row     store.AnalysisRow
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, keyword_hash, keywords, result_json, tfidf_json, created_at
FROM semantic_analysis
WHERE keyword_hash = ? AND created_at >= ?
ORDER BY created_at DESC, id DESC
LIMIT 1`, keywordHash, stamp(since)).Scan(&row.ID, &row.KeywordHash, &row.Keywords, &row.Report, &row.Snapshot, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AnalysisRow{}, false, nil
	}
	if err != nil {
		return store.AnalysisRow{}, false, fmt.Errorf("latest analysis: %w", err)
	}
	row.CreatedAt = unstamp(created)
	return row, true, nil
}

// InsertAnalysis appends a row and returns its ID.
func (s *sqliteStore) InsertAnalysis(ctx context.Context, row store.AnalysisRow) (string, error) {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.ID == "" {
		row.ID = store.NewID(row.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO semantic_analysis (id, keyword_hash, keywords, result_json, tfidf_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.KeywordHash, row.Keywords, row.Report, row.Snapshot, stamp(row.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return row.ID, nil
}

// RecentAnalyses lists the newest analyses across all hashes.
func (s *sqliteStore) RecentAnalyses(ctx context.Context, limit int) ([]store.AnalysisRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, keyword_hash, keywords, result_json, tfidf_json, created_at
FROM semantic_analysis
ORDER BY created_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent analyses: %w", err)
	}
	defer rows.Close()

	var out []store.AnalysisRow
	for rows.Next() {
		var (
			row     store.AnalysisRow
			created int64
		)
		if err := rows.Scan(&row.ID, &row.KeywordHash, &row.Keywords, &row.Report, &row.Snapshot, &created); err != nil {
			return nil, fmt.Errorf("recent analyses: %w", err)
		}
		row.CreatedAt = unstamp(created)
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteAnalysis removes one analysis by ID.
func (s *sqliteStore) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM semantic_analysis WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("analysis %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// ClearAnalyses drops every stored analysis.
func (s *sqliteStore) ClearAnalyses(ctx context.Context) (int64, error) {
	return s.clear(ctx, "semantic_analysis")
}

// LatestSearch returns the newest cached search for hash created at or after since.
func (s *sqliteStore) LatestSearch(ctx context.Context, keywordHash string, since time.Time) (store.SearchRow, bool, error) {
	var (
		row     store.SearchRow
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, keyword_hash, keyword, response_json, created_at
FROM serp_cache
WHERE keyword_hash = ? AND created_at >= ?
ORDER BY created_at DESC, id DESC
LIMIT 1`, keywordHash, stamp(since)).Scan(&row.ID, &row.KeywordHash, &row.Keyword, &row.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SearchRow{}, false, nil
	}
	if err != nil {
		return store.SearchRow{}, false, fmt.Errorf("latest search: %w", err)
	}
	row.CreatedAt = unstamp(created)
	return row, true, nil
}

// InsertSearch appends a cached search response.
func (s *sqliteStore) InsertSearch(ctx context.Context, row store.SearchRow) (string, error) {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.ID == "" {
		row.ID = store.NewID(row.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO serp_cache (id, keyword_hash, keyword, response_json, created_at)
VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.KeywordHash, row.Keyword, row.Payload, stamp(row.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert search: %w", err)
	}
	return row.ID, nil
}

// ClearSearches drops the whole search cache.
func (s *sqliteStore) ClearSearches(ctx context.Context) (int64, error) {
	return s.clear(ctx, "serp_cache")
}

// InsertUsage appends a usage event.
func (s *sqliteStore) InsertUsage(ctx context.Context, row store.UsageRow) (string, error) {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.ID == "" {
		row.ID = store.NewID(row.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO usage_log (id, identity, keywords, tokens, created_at)
VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.Identity, row.Keywords, row.Tokens, stamp(row.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert usage: %w", err)
	}
	return row.ID, nil
}

// CountUsageSince counts usage events for identity at or after since.
func (s *sqliteStore) CountUsageSince(ctx context.Context, identity string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_log WHERE identity = ? AND created_at >= ?`,
		identity, stamp(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return n, nil
}

// table is one of the fixed table names above, never user input.
func (s *sqliteStore) clear(ctx context.Context, table string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	return res.RowsAffected()
}
