package persistence

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/gofrs/flock"
)

// TimestampLayout is the timestamp format of the CSV vocabulary file.
const TimestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"source_word", "translation", "context_sentence", "timestamp"}

// CSVStore is an append-only CSV vocabulary file. An exclusive lock on a
// sibling .lock file is held for each scan and append, so several processes
// may share one file.
type CSVStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

func NewCSVStore(path string) (*CSVStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create csv directory: %w", err)
		}
	}
	return &CSVStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Close() error {
	return s.lock.Close()
}

// Append adds rec unless a row for the same word already exists.
func (s *CSVStore) Append(ctx context.Context, rec vocab.Record) (bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	records, err := s.read()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.SourceWord == rec.SourceWord {
			return false, nil
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return false, err
		}
	} else if err := terminateLastRow(f, info.Size()); err != nil {
		return false, fmt.Errorf("write vocabulary file: %w", err)
	}
	if err := w.Write(toRow(rec)); err != nil {
		return false, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("write vocabulary file: %w", err)
	}
	return true, nil
}

// terminateLastRow adds the newline a hand-edited file may lack, so the next
// row does not join the last one.
func terminateLastRow(f *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err := f.Write([]byte("\n"))
	return err
}

// ReplacePlaceholder rewrites the file with rec in place of a stored error
// placeholder for the same word.
func (s *CSVStore) ReplacePlaceholder(ctx context.Context, rec vocab.Record) (bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	records, err := s.read()
	if err != nil {
		return false, err
	}
	replaced := false
	for i, r := range records {
		if r.SourceWord == rec.SourceWord && vocab.IsPlaceholder(r.Translation) {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		return false, nil
	}
	return true, s.rewrite(records)
}

// All lists records in file order.
func (s *CSVStore) All(ctx context.Context) ([]vocab.Record, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.read()
}

// acquire serializes goroutines first, since a held flock is reentrant
// within the process.
func (s *CSVStore) acquire(ctx context.Context) error {
	s.mu.Lock()
	ok, err := s.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err == nil && !ok {
		err = errors.New("not acquired")
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("lock vocabulary file: %w", err)
	}
	return nil
}

func (s *CSVStore) release() {
	_ = s.lock.Unlock()
	s.mu.Unlock()
}

func (s *CSVStore) read() ([]vocab.Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var ret []vocab.Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read vocabulary file: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && strings.TrimPrefix(row[0], "\ufeff") == csvHeader[0] {
				continue
			}
		}
		if rec, ok := fromRow(row); ok {
			ret = append(ret, rec)
		}
	}
	return ret, nil
}

func (s *CSVStore) rewrite(records []vocab.Record) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create vocabulary file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		if err := w.Write(toRow(rec)); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func toRow(rec vocab.Record) []string {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return []string{rec.SourceWord, rec.Translation, rec.ContextSentence, ts.Local().Format(TimestampLayout)}
}

func fromRow(row []string) (vocab.Record, bool) {
	if len(row) < 2 || strings.TrimSpace(row[0]) == "" {
		return vocab.Record{}, false
	}
	rec := vocab.Record{SourceWord: row[0], Translation: row[1]}
	if len(row) > 2 {
		rec.ContextSentence = row[2]
	}
	if len(row) > 3 {
		if ts, err := time.ParseInLocation(TimestampLayout, row[3], time.Local); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec, true
}
