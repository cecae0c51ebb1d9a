// Package token splits subtitle lines into clickable words.
package token

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EdgePunctuation is trimmed from both ends of a word to build its key.
// Interior characters are left alone so contractions and hyphenations survive.
const EdgePunctuation = ".,!?;:¡¿\"'()[]{}«»“”‘’„…-–—"

// Token is one word of a displayed line.
type Token struct {
	Display  string `json:"display"`  // text exactly as shown
	Key      string `json:"key"`      // normalized lookup form
	Position int    `json:"position"` // ordinal among the line's tokens
}

// Tokenizer lowercases according to a language's casing rules.
type Tokenizer struct {
	lang language.Tag
}

func New(lang language.Tag) *Tokenizer {
	return &Tokenizer{lang: lang}
}

// Tokenize splits text on whitespace. Fields whose key is empty, such as
// standalone punctuation, are dropped.
func (t *Tokenizer) Tokenize(text string) []Token {
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	tokens := make([]Token, 0, len(fields))
	caser := cases.Lower(t.lang)
	for _, field := range fields {
		key := caser.String(trimEdges(field))
		if key == "" {
			continue
		}
		tokens = append(tokens, Token{
			Display:  field,
			Key:      key,
			Position: len(tokens),
		})
	}
	return tokens
}

// Normalize returns the lookup key for a single word.
func (t *Tokenizer) Normalize(word string) string {
	return cases.Lower(t.lang).String(trimEdges(strings.TrimSpace(word)))
}

// Keys returns the keys of tokens in order.
func Keys(tokens []Token) []string {
	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = tok.Key
	}
	return keys
}

var defaultTokenizer = New(language.Und)

// Tokenize uses language-neutral casing.
func Tokenize(text string) []Token {
	return defaultTokenizer.Tokenize(text)
}

// Normalize uses language-neutral casing.
func Normalize(word string) string {
	return defaultTokenizer.Normalize(word)
}

func trimEdges(s string) string {
	return strings.Trim(s, EdgePunctuation)
}
