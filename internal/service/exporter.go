package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/internal/persistence"
	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/MimeLyc/wordsub/pkg/icron"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// ExportStatus describes the export schedule and the last run.
type ExportStatus struct {
	Path       string    `json:"path"`
	Expression string    `json:"expression,omitempty"`
	Next       time.Time `json:"next,omitempty"`
	LastRun    time.Time `json:"last_run,omitempty"`
	LastCount  int       `json:"last_count"`
	LastError  string    `json:"last_error,omitempty"`
}

// Exporter writes the vocabulary store to a workbook on demand and on a
// cron schedule. Overlapping runs share one write.
type Exporter struct {
	store vocab.Store
	path  string
	cron  *cron.Cron
	group singleflight.Group

	mu        sync.Mutex
	expr      string
	entryID   cron.EntryID
	lastRun   time.Time
	lastCount int
	lastErr   error
}

// NewExporter schedules on c, which should be built with icron.Parser and
// started by the caller.
func NewExporter(store vocab.Store, path string, c *cron.Cron) *Exporter {
	return &Exporter{store: store, path: path, cron: c}
}

// NewCron returns a scheduler that accepts the same expressions as config
// validation does.
func NewCron() *cron.Cron {
	return cron.New(cron.WithParser(icron.Parser))
}

// Schedule replaces the current schedule. An empty expression disables it.
func (e *Exporter) Schedule(ctx context.Context, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr != "" {
		if _, err := icron.Parse(expr); err != nil {
			return WrapError(err, ErrConfig, "export schedule")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.entryID != 0 {
		e.cron.Remove(e.entryID)
		e.entryID = 0
	}
	e.expr = expr
	if expr == "" {
		log.Info("Vocabulary export schedule disabled")
		return nil
	}

	id, err := e.cron.AddFunc(expr, func() {
		if _, err := e.Run(ctx); err != nil {
			log.Error("Scheduled export failed: %v", err)
		}
	})
	if err != nil {
		return WrapError(err, ErrConfig, "export schedule")
	}
	e.entryID = id
	log.Info("Vocabulary export scheduled: %s -> %s", expr, e.path)
	return nil
}

// Run exports now and returns the number of rows written.
func (e *Exporter) Run(ctx context.Context) (int, error) {
	v, err, shared := e.group.Do("export", func() (any, error) {
		count, err := persistence.ExportWorkbook(ctx, e.store, e.path)
		e.mu.Lock()
		e.lastRun = time.Now()
		e.lastCount = count
		e.lastErr = err
		e.mu.Unlock()
		if err != nil {
			return 0, WrapError(err, ErrPersistence, "export vocabulary").WithContext("path", e.path)
		}
		log.Info("Exported %d translations to %s", count, e.path)
		return count, nil
	})
	if shared {
		log.Debug("Export joined a run already in progress")
	}
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (e *Exporter) Status() ExportStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := ExportStatus{
		Path:       e.path,
		Expression: e.expr,
		LastRun:    e.lastRun,
		LastCount:  e.lastCount,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if e.expr != "" {
		if info, err := icron.GetTriggerInfo(e.expr, time.Now()); err == nil {
			st.Next = info.Next
		}
	}
	return st
}

func (st ExportStatus) String() string {
	if st.Expression == "" {
		return fmt.Sprintf("export to %s on demand only", st.Path)
	}
	return fmt.Sprintf("export to %s on %q, next at %s", st.Path, st.Expression, st.Next.Format(time.RFC3339))
}
