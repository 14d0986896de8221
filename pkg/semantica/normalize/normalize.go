// Package normalize canonicalizes keyword input and page text before any
// statistics are computed over it.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/semantica/pkg/semantica/internalerr"
)

// MaxKeywords is the largest keyword set accepted for one analysis.
const MaxKeywords = 3

// KeywordSet is an ordered list of normalized, unique keyword phrases.
type KeywordSet []string

// Hash returns the hex SHA-256 digest identifying the set. Order matters.
func (k KeywordSet) Hash() string {
	sum := sha256.Sum256([]byte(strings.Join(k, ",")))
	return hex.EncodeToString(sum[:])
}

// String joins the phrases the way they are stored.
func (k KeywordSet) String() string {
	return strings.Join(k, ", ")
}

// Contains reports whether the phrase is part of the set.
func (k KeywordSet) Contains(phrase string) bool {
	for _, p := range k {
		if p == phrase {
			return true
		}
	}
	return false
}

// HashKeyword returns the cache key for a single keyword.
func HashKeyword(keyword string) string {
	sum := sha256.Sum256([]byte(keyword))
	return hex.EncodeToString(sum[:])
}

// ParseKeywords normalizes comma separated input and rejects empty sets.
func ParseKeywords(raw string) (KeywordSet, error) {
	set := Keywords(raw)
	if len(set) == 0 {
		return nil, fmt.Errorf("normalize: no usable keywords in %q: %w", raw, internalerr.ErrInvalidInput)
	}
	return set, nil
}

// Keywords splits comma separated input into at most MaxKeywords lowercase
// phrases. Duplicates are dropped case-insensitively, first one wins.
func Keywords(raw string) KeywordSet {
	var out KeywordSet
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		phrase := Whitespace(strings.ToLower(part))
		if phrase == "" {
			continue
		}
		if _, ok := seen[phrase]; ok {
			continue
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// Whitespace collapses every run of whitespace into a single space and trims.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate caps s at maxBytes without splitting a rune.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// boilerplateAtoms are dropped with everything inside them.
var boilerplateAtoms = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Header: true,
	atom.Footer: true,
	atom.Aside:  true,
}

// inlineAtoms do not separate words when removed.
var inlineAtoms = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Code: true, atom.Em: true,
	atom.I: true, atom.Mark: true, atom.Small: true, atom.Span: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true, atom.U: true,
}

// Text turns markup or plain text into a single line of readable text.
// Entities are decoded, boilerplate blocks removed and whitespace collapsed.
// Malformed markup yields whatever text could be recovered, possibly "".
func Text(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var buf strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error, either way keep what was read
			return Whitespace(buf.String())
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if boilerplateAtoms[a] {
				skip++
				continue
			}
			if !inlineAtoms[a] {
				buf.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if boilerplateAtoms[a] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if !inlineAtoms[a] {
				buf.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			buf.WriteByte(' ')
		}
	}
}

// Fold lowercases, transliterates to ASCII and keeps only [a-z0-9] separated
// by single spaces. Tokenizing, word counting and phrase matching all run on
// folded text.
func Fold(text string) string {
	text = html.UnescapeString(text)
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, text); err == nil {
		text = stripped
	}

	var buf strings.Builder
	buf.Grow(len(text))
	space := true
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			buf.WriteRune(r)
			space = false
			continue
		}
		if !space {
			buf.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(buf.String())
}
