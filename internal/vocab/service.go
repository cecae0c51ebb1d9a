package vocab

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/internal/token"
	"github.com/MimeLyc/wordsub/pkg/log"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	// RetryErrors lets a later real translation replace a stored placeholder.
	RetryErrors bool
	// Normalize maps a raw word to its cache key. Defaults to token.Normalize.
	Normalize func(string) string
	Now       func() time.Time
}

// Service resolves word activations through the cache, the backend and the
// persistent store. It is the only writer of translation records.
type Service struct {
	store   Store
	fetcher Fetcher
	cache   *Cache
	group   singleflight.Group
	opts    Options

	normMu    sync.RWMutex
	normalize func(string) string
}

func NewService(store Store, fetcher Fetcher, opts Options) *Service {
	if opts.Normalize == nil {
		opts.Normalize = token.Normalize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		fetcher:   fetcher,
		cache:     NewCache(),
		opts:      opts,
		normalize: opts.Normalize,
	}
}

// SetNormalize replaces the key function for later lookups. Callers that
// show tokens pass the tokenizer that built the token keys.
func (s *Service) SetNormalize(fn func(string) string) {
	if fn == nil {
		fn = token.Normalize
	}
	s.normMu.Lock()
	s.normalize = fn
	s.normMu.Unlock()
}

// Key returns the cache key of word.
func (s *Service) Key(word string) string {
	s.normMu.RLock()
	fn := s.normalize
	s.normMu.RUnlock()
	return fn(word)
}

func (s *Service) Cache() *Cache {
	return s.cache
}

// LookupOrFetch returns the translation of word. A cache hit performs no I/O.
// Backend failures become a cached placeholder and persistence failures are
// reported on the result, so the call itself never fails.
func (s *Service) LookupOrFetch(ctx context.Context, word, sentence string) Lookup {
	key := s.Key(word)
	if key == "" {
		return Lookup{Translation: NoWordSelected}
	}
	if t, ok := s.cache.Get(key); ok {
		return Lookup{Word: key, Translation: t, Cached: true, Failed: IsPlaceholder(t)}
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		if t, ok := s.cache.Get(key); ok {
			return Lookup{Word: key, Translation: t, Cached: true, Failed: IsPlaceholder(t)}, nil
		}
		return s.fetch(ctx, key, sentence), nil
	})
	return v.(Lookup)
}

func (s *Service) fetch(ctx context.Context, key, sentence string) Lookup {
	ret := Lookup{Word: key}
	translation, err := s.fetcher.Fetch(ctx, key, sentence)
	if err == nil && strings.TrimSpace(translation) == "" {
		err = errors.New("empty translation")
	}
	if err != nil {
		log.Warn("Translate %q failed: %v", key, err)
		translation = Placeholder(err)
		ret.Failed = true
	}
	ret.Translation = translation
	s.cache.Put(key, translation)

	rec := Record{
		SourceWord:      key,
		Translation:     translation,
		ContextSentence: strings.TrimSpace(sentence),
		Timestamp:       s.opts.Now(),
	}
	// The fetch may have used up the caller's deadline.
	ret.Appended, ret.PersistErr = s.persist(context.WithoutCancel(ctx), rec)
	if ret.PersistErr != nil {
		log.Error("Persist translation of %q: %v", key, ret.PersistErr)
	}
	return ret
}

func (s *Service) persist(ctx context.Context, rec Record) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	if s.opts.RetryErrors && !IsPlaceholder(rec.Translation) {
		if r, ok := s.store.(PlaceholderReplacer); ok {
			replaced, err := r.ReplacePlaceholder(ctx, rec)
			if err != nil || replaced {
				return replaced, err
			}
		}
	}
	return s.store.Append(ctx, rec)
}

// Warm preloads the cache from the store and returns the number of words
// loaded. Placeholders are skipped when RetryErrors is set.
func (s *Service) Warm(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	records, err := s.store.All(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if s.opts.RetryErrors && IsPlaceholder(rec.Translation) {
			continue
		}
		key := s.Key(rec.SourceWord)
		if key == "" {
			continue
		}
		if _, ok := s.cache.Get(key); ok {
			continue
		}
		s.cache.Put(key, rec.Translation)
		n++
	}
	log.Info("Warmed translation cache with %d words", n)
	return n, nil
}
