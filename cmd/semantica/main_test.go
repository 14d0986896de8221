package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semantica/pkg/semantica/normalize"
)

// isolate points the CLI at a temporary database with no external providers.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SEMANTICA_DB_PATH", filepath.Join(dir, "semantica.db"))
	t.Setenv("SEMANTICA_SERPAPI_KEY", "")
	t.Setenv("SEMANTICA_OPENAI_KEY", "")
	t.Setenv("SEMANTICA_ANTHROPIC_KEY", "")
	t.Setenv("SEMANTICA_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeThenScore(t *testing.T) {
	dir := isolate(t)
	metricsFile := filepath.Join(dir, "semantica.prom")

	out, err := execute(t, "", "analyze", "cafetera", "espresso", "--metrics-textfile", metricsFile)
	require.NoError(t, err)

	var analyzed struct {
		Record struct {
			ID          string   `json:"id"`
			KeywordHash string   `json:"keyword_hash"`
			Keywords    []string `json:"keywords"`
		} `json:"record"`
		Diagnostics struct {
			Mode string `json:"fallback_mode"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &analyzed))
	assert.Equal(t, []string{"cafetera", "espresso"}, analyzed.Record.Keywords)
	assert.Equal(t, "keywords", analyzed.Diagnostics.Mode)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `semantica_analyses_total{outcome="degraded"} 1`)

	out, err = execute(t, "<p>Mi cafetera espresso</p>", "score", "--keywords", "cafetera,espresso", "--file", "-")
	require.NoError(t, err)
	var scored struct {
		WordCount int `json:"word_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &scored))
	assert.Equal(t, 3, scored.WordCount)

	out, err = execute(t, "", "reports")
	require.NoError(t, err)
	assert.Contains(t, out, analyzed.Record.ID)

	_, err = execute(t, "", "delete", analyzed.Record.ID)
	require.NoError(t, err)
	_, err = execute(t, "", "report", "--hash", analyzed.Record.KeywordHash)
	assert.Error(t, err)
}

func TestClearCacheScope(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "clear-cache", "--scope", "everything")
	assert.Error(t, err)

	out, err := execute(t, "", "clear-cache", "--scope", "search")
	require.NoError(t, err)
	assert.JSONEq(t, `{"searches": 0}`, out)
}

func TestResolveHash(t *testing.T) {
	hash, err := resolveHash("abc", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "abc", hash)

	hash, err = resolveHash("", "Cafetera, espresso")
	require.NoError(t, err)
	assert.Equal(t, normalize.KeywordSet{"cafetera", "espresso"}.Hash(), hash)

	_, err = resolveHash("", " , ")
	assert.Error(t, err)
}

func TestReadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>hola</p>"), 0o644))

	got, err := readContent(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "<p>hola</p>", got)

	got, err = readContent(strings.NewReader("<p>stdin</p>"), "-")
	require.NoError(t, err)
	assert.Equal(t, "<p>stdin</p>", got)

	_, err = readContent(nil, "")
	assert.Error(t, err)
}
