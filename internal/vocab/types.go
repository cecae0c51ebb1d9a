package vocab

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// NoWordSelected is returned for an empty activation.
	NoWordSelected = "No word selected"
	// PlaceholderPrefix starts every translation stored for a failed fetch.
	PlaceholderPrefix = "Translation error: "
)

// Record is one persisted translation.
type Record struct {
	SourceWord      string    `json:"source_word"`
	Translation     string    `json:"translation"`
	ContextSentence string    `json:"context_sentence"`
	Timestamp       time.Time `json:"timestamp"`
}

// Store is the persistent dedup store. Append keeps the first record written
// for a word and reports whether rec was stored.
type Store interface {
	Append(ctx context.Context, rec Record) (bool, error)
	All(ctx context.Context) ([]Record, error)
}

// PlaceholderReplacer is implemented by stores that can overwrite a stored
// error placeholder with a real translation.
type PlaceholderReplacer interface {
	ReplacePlaceholder(ctx context.Context, rec Record) (bool, error)
}

// Fetcher asks the translation backend for a word.
type Fetcher interface {
	Fetch(ctx context.Context, word, sentence string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, word, sentence string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, word, sentence string) (string, error) {
	return f(ctx, word, sentence)
}

// Lookup is the outcome of one activation.
type Lookup struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Cached      bool   `json:"cached"`
	Failed      bool   `json:"failed"`
	Appended    bool   `json:"appended"`
	PersistErr  error  `json:"-"`
}

// Placeholder renders the stand-in translation stored for a failed fetch.
func Placeholder(err error) string {
	return fmt.Sprintf("%s%v", PlaceholderPrefix, err)
}

// IsPlaceholder reports whether translation was produced by Placeholder.
func IsPlaceholder(translation string) bool {
	return strings.HasPrefix(translation, PlaceholderPrefix)
}
