package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want Range
	}{
		{"1.2-1.8%", Range{Min: 1.2, Max: 1.8}},
		{"2-3", Range{Min: 2, Max: 3}},
		{" 2 - 3 % ", Range{Min: 2, Max: 3}},
		{"1.5%-2%", Range{Min: 1.5, Max: 2}},
		{"2,5-3", Range{Min: 2.5, Max: 3}},
		{"2", Range{Min: 2, Max: 2}},
		{"3-2%", Range{Min: 2, Max: 3}},
		{"", Range{}},
		{"alto", Range{}},
		{"1-2-3", Range{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRange(tt.in), tt.in)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 2, Max: 3}
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(2.5))
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(3.01))

	// 0-0 never matches, not even a density of zero
	assert.False(t, Range{}.Contains(0))
	assert.True(t, Range{}.IsZero())
}

func TestRangeJSON(t *testing.T) {
	var v struct {
		D Range     `json:"d"`
		M WordRange `json:"m"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"d":"1.2-1.8%","m":"10-14"}`), &v))
	assert.Equal(t, Range{Min: 1.2, Max: 1.8}, v.D)
	assert.Equal(t, WordRange{Min: 10, Max: 14}, v.M)

	require.NoError(t, json.Unmarshal([]byte(`{"d":2.5,"m":12}`), &v))
	assert.Equal(t, Range{Min: 2.5, Max: 2.5}, v.D)
	assert.Equal(t, WordRange{Min: 12, Max: 12}, v.M)

	require.NoError(t, json.Unmarshal([]byte(`{"d":null,"m":null}`), &v))
	assert.True(t, v.D.IsZero())
	assert.True(t, v.M.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":{"min":1}}`), &v))

	out, err := json.Marshal(struct {
		D Range     `json:"d"`
		M WordRange `json:"m"`
	}{Range{Min: 1.25, Max: 2}, WordRange{Min: 900, Max: 1100}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1.25-2%","m":"900-1100"}`, string(out))
}

func TestWordRange(t *testing.T) {
	assert.Equal(t, WordRange{Min: 900, Max: 1100}, ParseWordRange("900-1100"))
	assert.Equal(t, WordRange{}, ParseWordRange("mucho"))
	assert.Equal(t, 1000, WordRange{Min: 900, Max: 1100}.Midpoint())
	assert.Equal(t, 5, WordRange{Min: 5, Max: 6}.Midpoint())
	assert.Equal(t, "900-1100", WordRange{Min: 900, Max: 1100}.String())
}
