package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	analyses []store.AnalysisRow
	searches []store.SearchRow
	usage    []store.UsageRow
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// newer orders rows by creation time, then ID, newest first.
func newer(at, bt time.Time, aid, bid string) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return aid > bid
}

// LatestAnalysis implements store.Store.
func (s *Store) LatestAnalysis(ctx context.Context, keywordHash string, since time.Time) (store.AnalysisRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  store.AnalysisRow
		found bool
	)
	for _, r := range s.analyses {
		if r.KeywordHash != keywordHash || r.CreatedAt.Before(since) {
			continue
		}
		if !found || newer(r.CreatedAt, best.CreatedAt, r.ID, best.ID) {
			best, found = r, true
		}
	}
	return best, found, nil
}

// InsertAnalysis implements store.Store.
func (s *Store) InsertAnalysis(ctx context.Context, row store.AnalysisRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.ID == "" {
		row.ID = store.NewID(row.CreatedAt)
	}
	s.analyses = append(s.analyses, row)
	return row.ID, nil
}

// RecentAnalyses implements store.Store.
func (s *Store) RecentAnalyses(ctx context.Context, limit int) ([]store.AnalysisRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	out := append([]store.AnalysisRow(nil), s.analyses...)
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteAnalysis implements store.Store.
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.analyses {
		if r.ID == id {
			s.analyses = append(s.analyses[:i], s.analyses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("analysis %s: %w", id, internalerr.ErrNotFound)
}

// ClearAnalyses implements store.Store.
func (s *Store) ClearAnalyses(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.analyses))
	s.analyses = nil
	return n, nil
}

// LatestSearch implements store.Store.
func (s *Store) LatestSearch(ctx context.Context, keywordHash string, since time.Time) (store.SearchRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  store.SearchRow
		found bool
	)
	for _, r := range s.searches {
		if r.KeywordHash != keywordHash || r.CreatedAt.Before(since) {
			continue
		}
		if !found || newer(r.CreatedAt, best.CreatedAt, r.ID, best.ID) {
			best, found = r, true
		}
	}
	return best, found, nil
}

// InsertSearch implements store.Store.
func (s *Store) InsertSearch(ctx context.Context, row store.SearchRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.ID == "" {
		row.ID = store.NewID(row.CreatedAt)
	}
	s.searches = append(s.searches, row)
	return row.ID, nil
}

// ClearSearches implements store.Store.
func (s *Store) ClearSearches(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.searches))
	s.searches = nil
	return n, nil
}

// InsertUsage implements store.Store.
func (s *Store) InsertUsage(ctx context.Context, row store.UsageRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.ID == "" {
		row.ID = store.NewID(row.CreatedAt)
	}
	s.usage = append(s.usage, row)
	return row.ID, nil
}

// CountUsageSince implements store.Store.
func (s *Store) CountUsageSince(ctx context.Context, identity string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.usage {
		if r.Identity == identity && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Searches returns a copy of every cached search row, oldest first.
func (s *Store) Searches() []store.SearchRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.SearchRow(nil), s.searches...)
}

// Usage returns a copy of every usage row, oldest first.
func (s *Store) Usage() []store.UsageRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.UsageRow(nil), s.usage...)
}
