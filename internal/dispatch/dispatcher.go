package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/internal/jobs"
	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/MimeLyc/wordsub/pkg/log"
)

// Result is delivered once for every activation.
type Result struct {
	JobID    string        `json:"job_id"`
	Sentence string        `json:"sentence,omitempty"`
	Lookup   vocab.Lookup  `json:"lookup"`
	Elapsed  time.Duration `json:"elapsed"`
}

type lookuper interface {
	LookupOrFetch(ctx context.Context, word, sentence string) vocab.Lookup
}

type Config struct {
	Workers int
	// Timeout bounds each backend fetch.
	Timeout time.Duration
	// Buffer is the capacity of the results channel.
	Buffer int
}

// Dispatcher resolves word activations off the caller's goroutine and hands
// the results back over a channel.
type Dispatcher struct {
	queue   *jobs.Queue
	vocab   lookuper
	results chan Result
	done    chan struct{}

	closeOnce sync.Once
}

func New(svc lookuper, cfg Config) *Dispatcher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	d := &Dispatcher{
		queue:   jobs.NewQueue(cfg.Workers, jobs.WithTimeout(cfg.Timeout)),
		vocab:   svc,
		results: make(chan Result, cfg.Buffer),
		done:    make(chan struct{}),
	}
	d.queue.Start(d.execute)
	return d
}

// Activate queues a lookup of word and returns its job id without waiting.
func (d *Dispatcher) Activate(word, sentence string) string {
	job := d.queue.Enqueue(jobs.Payload{Word: word, Sentence: sentence})
	log.Debug("Activation %s queued for %q", job.ID, word)
	return job.ID
}

// Results is drained by the goroutine that owns the presentation.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

func (d *Dispatcher) Jobs() []*jobs.Job {
	return d.queue.List()
}

func (d *Dispatcher) Pending() int {
	counts := d.queue.Counts()
	return counts[jobs.StatusPending] + counts[jobs.StatusRunning]
}

// Close waits for running lookups and closes the results channel.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.queue.Stop()
		close(d.results)
	})
}

func (d *Dispatcher) execute(ctx context.Context, job *jobs.Job) error {
	start := time.Now()
	lookup := d.vocab.LookupOrFetch(ctx, job.Payload.Word, job.Payload.Sentence)
	res := Result{
		JobID:    job.ID,
		Sentence: job.Payload.Sentence,
		Lookup:   lookup,
		Elapsed:  time.Since(start),
	}
	select {
	case d.results <- res:
	case <-d.done:
		log.Warn("Dropped result of %s for %q: dispatcher closed", job.ID, lookup.Word)
	}
	if lookup.Failed {
		return errors.New(lookup.Translation)
	}
	return lookup.PersistErr
}
