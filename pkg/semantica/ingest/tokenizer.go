package ingest

import (
	"iter"
	"strings"

	"github.com/cognicore/semantica/pkg/semantica/normalize"
	"github.com/cognicore/semantica/pkg/semantica/stoplist"
)

// MinTokenLength is the shortest token kept by the tokenizer.
const MinTokenLength = 3

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stopwords *stoplist.Manager
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	folded := make([]string, 0, len(stopwords))
	for _, w := range stopwords {
		if f := normalize.Fold(w); f != "" {
			folded = append(folded, f)
		}
	}
	return &Tokenizer{stopwords: stoplist.NewManager(folded)}
}

// Spanish creates a tokenizer using the built-in Spanish stoplist.
func Spanish() *Tokenizer {
	return NewTokenizer(stoplist.Spanish())
}

// All yields the tokens of text: folded to ASCII, split on spaces, with short
// tokens and stopwords dropped. The sequence can be ranged over repeatedly.
func (t *Tokenizer) All(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, word := range strings.Fields(normalize.Fold(text)) {
			if len(word) < MinTokenLength || t.stopwords.IsStop(word) {
				continue
			}
			if !yield(word) {
				return
			}
		}
	}
}

// Tokenize splits text into normalized tokens, removing stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for tok := range t.All(text) {
		tokens = append(tokens, tok)
	}
	return tokens
}

// Words returns every folded word of text, without any filtering. Word counts
// and phrase matching use this view so that stopwords still count as words.
func Words(text string) []string {
	return strings.Fields(normalize.Fold(text))
}

// CountWords returns len(Words(text)).
func CountWords(text string) int {
	return len(Words(text))
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	if f := normalize.Fold(word); f != "" {
		t.stopwords.Add(f)
	}
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	t.stopwords.Remove(normalize.Fold(word))
}

// IsStopword reports whether the folded word is filtered.
func (t *Tokenizer) IsStopword(word string) bool {
	return t.stopwords.IsStop(normalize.Fold(word))
}

// CountPhrase counts contiguous, order-sensitive occurrences of phrase in
// words. Overlapping matches are counted. An empty phrase never matches.
func CountPhrase(words, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return 0
	}
	count := 0
	for i := 0; i <= len(words)-len(phrase); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}
