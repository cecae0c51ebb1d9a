package vocab

import (
	"context"
	"sync"

	"github.com/MimeLyc/wordsub/internal/translator"
	"golang.org/x/text/language"
)

// BackendFetcher adapts a translator.Backend to Fetcher. The language pair
// may change while the session runs.
type BackendFetcher struct {
	mu      sync.RWMutex
	backend translator.Backend
	source  language.Tag
	target  language.Tag
}

func NewBackendFetcher(backend translator.Backend, source, target language.Tag) *BackendFetcher {
	return &BackendFetcher{backend: backend, source: source, target: target}
}

func (f *BackendFetcher) Fetch(ctx context.Context, word, sentence string) (string, error) {
	f.mu.RLock()
	backend, source, target := f.backend, f.source, f.target
	f.mu.RUnlock()
	return backend.Translate(ctx, translator.Request{
		Word:     word,
		Sentence: sentence,
		Source:   source,
		Target:   target,
	})
}

func (f *BackendFetcher) Languages() (source, target language.Tag) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.source, f.target
}

func (f *BackendFetcher) SetSource(tag language.Tag) {
	f.mu.Lock()
	f.source = tag
	f.mu.Unlock()
}

func (f *BackendFetcher) SetTarget(tag language.Tag) {
	f.mu.Lock()
	f.target = tag
	f.mu.Unlock()
}

// SetBackend swaps the backend for later fetches. Fetches already running
// finish on the old one.
func (f *BackendFetcher) SetBackend(backend translator.Backend) {
	f.mu.Lock()
	f.backend = backend
	f.mu.Unlock()
}

func (f *BackendFetcher) Backend() translator.Backend {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend
}
