package score

import (
	"math"
	"regexp"
	"strings"

	"github.com/cognicore/semantica/pkg/semantica/normalize"
)

// Readability is a Flesch reading-ease estimate for Spanish text.
type Readability struct {
	Score     float64 `json:"score"`
	Level     string  `json:"level"`
	Words     int     `json:"words"`
	Sentences int     `json:"sentences"`
	Syllables int     `json:"syllables"`
}

// LevelUnknown labels text with no words.
const LevelUnknown = "Desconocido"

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

var levels = []struct {
	min   float64
	label string
}{
	{90, "Muy fácil"},
	{80, "Fácil"},
	{70, "Bastante fácil"},
	{60, "Estándar"},
	{50, "Bastante difícil"},
	{30, "Difícil"},
	{0, "Muy difícil"},
}

// Flesch scores plain text as 206.835 - 1.015*(words/sentences) -
// 84.6*(syllables/words), clamped to [0,100] and rounded to one decimal.
// Sentences are runs of terminal punctuation, at least one.
func Flesch(plain string) Readability {
	words := strings.Fields(plain)
	if len(words) == 0 {
		return Readability{Level: LevelUnknown}
	}
	r := Readability{
		Words:     len(words),
		Sentences: max(1, len(sentenceEnd.FindAllStringIndex(plain, -1))),
	}
	for _, w := range words {
		r.Syllables += wordSyllables(w)
	}
	r.Syllables = max(1, r.Syllables)

	s := 206.835 - 1.015*(float64(r.Words)/float64(r.Sentences)) - 84.6*(float64(r.Syllables)/float64(r.Words))
	s = math.Max(0, math.Min(100, s))
	r.Score = math.Round(s*10) / 10
	r.Level = Level(r.Score)
	return r
}

// Level buckets a reading-ease score.
func Level(score float64) string {
	for _, l := range levels {
		if score >= l.min {
			return l.label
		}
	}
	return levels[len(levels)-1].label
}

// wordSyllables counts syllables of one raw word; words without letters
// count zero.
func wordSyllables(word string) int {
	letters := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, normalize.Fold(word))
	if letters == "" {
		return 0
	}
	return Syllables(letters)
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func isStrong(c byte) bool {
	return c == 'a' || c == 'e' || c == 'o'
}

// Syllables estimates the syllables of a folded lowercase word: each vowel
// cluster is one syllable (diphthongs collapse), two adjacent strong vowels
// form a hiatus and split. The result is at least 1.
func Syllables(word string) int {
	n := 0
	prevVowel := false
	for i := 0; i < len(word); i++ {
		c := word[i]
		v := isVowel(c)
		switch {
		case v && !prevVowel:
			n++
		case v && isStrong(c) && isStrong(word[i-1]):
			n++
		}
		prevVowel = v
	}
	return max(1, n)
}
