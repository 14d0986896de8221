package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := Spanish()

	tokens := tokenizer.Tokenize("La cafetera italiana es la mejor opción para el café de la mañana")

	assert.Equal(t, []string{"cafetera", "italiana", "mejor", "opcion", "cafe", "manana"}, tokens)
}

func TestTokenizerDropsShortTokens(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("yo vi un oso en la tv 4k hoy")

	assert.Equal(t, []string{"oso", "hoy"}, tokens)
}

func TestTokenizerBoilerplateStopwords(t *testing.T) {
	tokenizer := Spanish()

	tokens := tokenizer.Tokenize("Acepta las cookies y suscríbete a nuestra newsletter sobre cafeteras")

	assert.Equal(t, []string{"cafeteras"}, tokens)
}

func TestTokenizerDiacritics(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("Guía rápida: ¿Cómo elegir CAFÉ?")

	assert.Equal(t, []string{"guia", "rapida", "como", "elegir", "cafe"}, tokens)
}

func TestAllIsRestartable(t *testing.T) {
	tokenizer := Spanish()
	seq := tokenizer.All("molinillo manual de café con muela cerámica")

	var first, second []string
	for tok := range seq {
		first = append(first, tok)
	}
	for tok := range seq {
		second = append(second, tok)
	}

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestAllStopsEarly(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	var got []string
	for tok := range tokenizer.All("uno dos tres cuatro cinco") {
		got = append(got, tok)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"uno", "dos"}, got)
}

func TestAddRemoveStopword(t *testing.T) {
	tokenizer := NewTokenizer([]string{"café"})

	// Stopwords are folded like tokens
	assert.Equal(t, []string{"molido"}, tokenizer.Tokenize("cafe molido"))
	assert.True(t, tokenizer.IsStopword("CAFÉ"))

	tokenizer.RemoveStopword("café")
	assert.Equal(t, []string{"cafe", "molido"}, tokenizer.Tokenize("cafe molido"))

	tokenizer.AddStopword("molido")
	assert.Equal(t, []string{"cafe"}, tokenizer.Tokenize("cafe molido"))
}

func TestWordsKeepsEverything(t *testing.T) {
	words := Words("La cafetera, y el café.")

	assert.Equal(t, []string{"la", "cafetera", "y", "el", "cafe"}, words)
	assert.Equal(t, 5, CountWords("La cafetera, y el café."))
	assert.Equal(t, 0, CountWords("  ¡¿ "))
}

func TestCountPhrase(t *testing.T) {
	words := Words("La cafetera italiana y otra cafetera italiana. Cafetera sola, italiana cafetera.")

	tests := []struct {
		phrase string
		want   int
	}{
		{"cafetera italiana", 2},
		{"cafetera", 4},
		{"italiana cafetera", 2},
		{"CAFETERA ITALIANA", 2},
		{"italiana cafetera italiana", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountPhrase(words, Words(tt.phrase)), tt.phrase)
	}
	assert.Equal(t, 2, CountPhrase(Words("aa aa aa"), Words("aa aa")))
}
