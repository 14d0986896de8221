package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range is a density target in percent, e.g. "1.2-1.8%". The zero value is
// the degenerate 0-0 range, which never matches.
type Range struct {
	Min float64
	Max float64
}

// ParseRange reads "a-b%", "a-b" or a single number. Anything else is 0-0.
// A comma works as decimal separator.
func ParseRange(s string) Range {
	lo, hi, ok := parseBounds(s)
	if !ok {
		return Range{}
	}
	return Range{Min: lo, Max: hi}
}

// IsZero reports whether r is the degenerate 0-0 range.
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// Contains reports whether v falls inside r. A zero range contains nothing.
func (r Range) Contains(v float64) bool {
	if r.IsZero() {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// String formats r as "a-b%".
func (r Range) String() string {
	return formatNumber(r.Min) + "-" + formatNumber(r.Max) + "%"
}

// MarshalJSON encodes r as its string form.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts a string or a bare number.
func (r *Range) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("density range: %w", err)
	}
	*r = ParseRange(s)
	return nil
}

// WordRange is an inclusive word-count span, e.g. "900-1100".
type WordRange struct {
	Min int
	Max int
}

// ParseWordRange reads "a-b" or a single number; anything else is 0-0.
func ParseWordRange(s string) WordRange {
	lo, hi, ok := parseBounds(s)
	if !ok {
		return WordRange{}
	}
	return WordRange{Min: int(lo), Max: int(hi)}
}

// IsZero reports whether w is 0-0.
func (w WordRange) IsZero() bool {
	return w.Min == 0 && w.Max == 0
}

// Midpoint returns the middle of the span, rounded down.
func (w WordRange) Midpoint() int {
	return (w.Min + w.Max) / 2
}

// String formats w as "a-b".
func (w WordRange) String() string {
	return strconv.Itoa(w.Min) + "-" + strconv.Itoa(w.Max)
}

// MarshalJSON encodes w as its string form.
func (w WordRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON accepts a string or a bare number.
func (w *WordRange) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("word range: %w", err)
	}
	*w = ParseWordRange(s)
	return nil
}

func parseBounds(s string) (float64, float64, bool) {
	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil || v < 0 {
			return 0, 0, false
		}
		return v, v, true
	case 2:
		lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	return 0, 0, false
}

// scalarString returns a JSON string or number as text; null is "".
func scalarString(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return "", nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

func formatNumber(v float64) string {
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64)
}
