package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semantica/pkg/semantica/store"
	"github.com/cognicore/semantica/pkg/semantica/store/storetest"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "semantica.db"))
	require.NoError(t, err)
	return st
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, openTemp)
}

// TestSQLiteReopen checks rows survive closing and reopening the file.
func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "semantica.db")

	st, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	created := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	id, err := st.InsertAnalysis(ctx, store.AnalysisRow{
		KeywordHash: "abc",
		Keywords:    "cafetera, espresso",
		Report:      `{"semantic_keywords":[]}`,
		Snapshot:    `{"n":2}`,
		CreatedAt:   created,
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	row, found, err := st.LatestAnalysis(ctx, "abc", time.Time{})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, row.ID)
	assert.Equal(t, `{"n":2}`, row.Snapshot)
	assert.True(t, created.Equal(row.CreatedAt), "created_at round trip keeps nanoseconds")
}
