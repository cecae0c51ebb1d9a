package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/wordsub/internal/jobs"
	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingFetcher struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, word, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, word)
	f.mu.Unlock()
	select {
	case <-f.release:
		return word + "-en", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func collect(t *testing.T, d *Dispatcher, n int) map[string]Result {
	t.Helper()
	ret := make(map[string]Result, n)
	timeout := time.After(2 * time.Second)
	for len(ret) < n {
		select {
		case r := <-d.Results():
			ret[r.JobID] = r
		case <-timeout:
			t.Fatalf("got %d of %d results", len(ret), n)
		}
	}
	return ret
}

func TestActivate_DoesNotBlock(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	svc := vocab.NewService(nil, fetcher, vocab.Options{})
	d := New(svc, Config{Workers: 2, Timeout: time.Second})
	defer d.Close()

	start := time.Now()
	id1 := d.Activate("hola", "¡Hola, mundo!")
	id2 := d.Activate("mundo", "¡Hola, mundo!")
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, d.Pending())

	close(fetcher.release)
	results := collect(t, d, 2)
	assert.Equal(t, "hola-en", results[id1].Lookup.Translation)
	assert.Equal(t, "mundo-en", results[id2].Lookup.Translation)
	assert.Equal(t, "¡Hola, mundo!", results[id1].Sentence)
}

func TestActivate_EveryActivationGetsAResult(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	close(fetcher.release)
	svc := vocab.NewService(nil, fetcher, vocab.Options{})
	d := New(svc, Config{Workers: 4, Timeout: time.Second})
	defer d.Close()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, d.Activate("Gato", ""))
	}
	results := collect(t, d, 5)
	for _, id := range ids {
		assert.Equal(t, "gato-en", results[id].Lookup.Translation)
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Len(t, fetcher.calls, 1)
}

func TestActivate_TimeoutYieldsPlaceholder(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	svc := vocab.NewService(nil, fetcher, vocab.Options{})
	d := New(svc, Config{Workers: 1, Timeout: 30 * time.Millisecond})
	defer d.Close()

	id := d.Activate("lento", "")
	results := collect(t, d, 1)
	got := results[id].Lookup
	assert.True(t, got.Failed)
	assert.Equal(t, "Translation error: context deadline exceeded", got.Translation)

	require.Eventually(t, func() bool {
		for _, j := range d.Jobs() {
			if j.ID == id {
				return j.Status == jobs.StatusFailed
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestActivate_EmptyWord(t *testing.T) {
	svc := vocab.NewService(nil, vocab.FetcherFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("must not be called")
	}), vocab.Options{})
	d := New(svc, Config{Workers: 1})
	defer d.Close()

	id := d.Activate("  ", "")
	results := collect(t, d, 1)
	assert.Equal(t, vocab.NoWordSelected, results[id].Lookup.Translation)
	assert.False(t, results[id].Lookup.Failed)
}

func TestClose_DoesNotDeadlockWithUndrainedResults(t *testing.T) {
	svc := vocab.NewService(nil, vocab.FetcherFunc(func(_ context.Context, w, _ string) (string, error) {
		return w, nil
	}), vocab.Options{})
	d := New(svc, Config{Workers: 1, Buffer: 1})
	for _, w := range []string{"a", "b", "c"} {
		d.Activate(w, "")
	}

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
