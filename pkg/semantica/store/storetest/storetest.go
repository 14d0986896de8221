// Package storetest holds the behaviour every store.Store must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/store"
)

// Run exercises a fresh store from open for every subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("latest analysis wins", func(t *testing.T) { latestAnalysis(t, open(t)) })
	t.Run("stale analysis ignored", func(t *testing.T) { staleAnalysis(t, open(t)) })
	t.Run("recent delete clear", func(t *testing.T) { recentDeleteClear(t, open(t)) })
	t.Run("search cache", func(t *testing.T) { searchCache(t, open(t)) })
	t.Run("usage window", func(t *testing.T) { usageWindow(t, open(t)) })
}

var base = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func latestAnalysis(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, found, err := st.LatestAnalysis(ctx, "h1", time.Time{})
	require.NoError(t, err)
	assert.False(t, found)

	first, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h1", Keywords: "cafe", Report: `{"v":1}`, Snapshot: "{}", CreatedAt: base})
	require.NoError(t, err)
	require.NotEmpty(t, first)
	// same timestamp: the later ID wins
	second, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h1", Keywords: "cafe", Report: `{"v":2}`, Snapshot: "{}", CreatedAt: base})
	require.NoError(t, err)
	_, err = st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h2", Keywords: "te", Report: `{"v":3}`, Snapshot: "{}", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	row, found, err := st.LatestAnalysis(ctx, "h1", base.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, row.ID)
	assert.Equal(t, `{"v":2}`, row.Report)
	assert.Equal(t, "cafe", row.Keywords)
	assert.True(t, row.CreatedAt.Equal(base))
}

func staleAnalysis(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h", Keywords: "k", Report: "{}", Snapshot: "{}", CreatedAt: base})
	require.NoError(t, err)

	_, found, err := st.LatestAnalysis(ctx, "h", base.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = st.LatestAnalysis(ctx, "h", base)
	require.NoError(t, err)
	assert.True(t, found)
}

func recentDeleteClear(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	var ids []string
	for i := 0; i < 7; i++ {
		id, err := st.InsertAnalysis(ctx, store.AnalysisRow{KeywordHash: "h", Keywords: "k", Report: "{}", Snapshot: "{}", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	recent, err := st.RecentAnalyses(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, ids[6], recent[0].ID)
	assert.Equal(t, ids[2], recent[4].ID)

	require.NoError(t, st.DeleteAnalysis(ctx, ids[6]))
	err = st.DeleteAnalysis(ctx, ids[6])
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	recent, err = st.RecentAnalyses(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ids[5], recent[0].ID)

	n, err := st.ClearAnalyses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
	recent, err = st.RecentAnalyses(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func searchCache(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, err := st.InsertSearch(ctx, store.SearchRow{KeywordHash: "k", Keyword: "cafetera", Payload: `{"old":true}`, CreatedAt: base})
	require.NoError(t, err)
	_, err = st.InsertSearch(ctx, store.SearchRow{KeywordHash: "k", Keyword: "cafetera", Payload: `{"old":false}`, CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	row, found, err := st.LatestSearch(ctx, "k", base)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"old":false}`, row.Payload)
	assert.Equal(t, "cafetera", row.Keyword)

	_, found, err = st.LatestSearch(ctx, "k", base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, found)

	n, err := st.ClearSearches(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, found, err = st.LatestSearch(ctx, "k", time.Time{})
	require.NoError(t, err)
	assert.False(t, found)
}

func usageWindow(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	for i := 0; i < 3; i++ {
		_, err := st.InsertUsage(ctx, store.UsageRow{Identity: "10.0.0.1", Keywords: "cafe", Tokens: 100, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := st.InsertUsage(ctx, store.UsageRow{Identity: "10.0.0.2", Keywords: "te", CreatedAt: base})
	require.NoError(t, err)

	n, err := st.CountUsageSince(ctx, "10.0.0.1", base)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = st.CountUsageSince(ctx, "10.0.0.1", base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = st.CountUsageSince(ctx, "nobody", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
