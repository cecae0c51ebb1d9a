package tracks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/subtitle"
	"github.com/MimeLyc/wordsub/pkg/file"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

type Config struct {
	TempDir string
	// SessionID names the temporary extraction files. Generated when empty.
	SessionID string
	// SourceLanguage is preferred when picking a track for native rendering.
	SourceLanguage language.Tag
}

// Pipeline discovers embedded subtitle tracks, extracts the chosen one and
// loads it. Every failure ends in StateFallback, where the player renders
// subtitles natively.
//
// The observer is called synchronously on the goroutine that caused the
// transition and must not call back into the pipeline.
type Pipeline struct {
	op     media.Operator
	cfg    Config
	notify Observer

	mu          sync.Mutex
	state       State
	mediaPath   string
	tracks      []media.Track
	entries     []subtitle.Entry
	skipped     []subtitle.SkippedBlock
	unavailable bool
	tempFiles   []string
}

func NewPipeline(op media.Operator, cfg Config, notify Observer) *Pipeline {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if notify == nil {
		notify = func(Status) {}
	}
	return &Pipeline{
		op:     op,
		cfg:    cfg,
		notify: notify,
		state:  StateNoMedia,
	}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) MediaPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mediaPath
}

func (p *Pipeline) Tracks() []media.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.Track(nil), p.tracks...)
}

// Entries returns the loaded subtitle entries, empty unless StateLoaded.
func (p *Pipeline) Entries() []subtitle.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries
}

func (p *Pipeline) Skipped() []subtitle.SkippedBlock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]subtitle.SkippedBlock(nil), p.skipped...)
}

// Unavailable reports whether the media tools were found missing. It stays
// set for the life of the pipeline.
func (p *Pipeline) Unavailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unavailable
}

// Open probes mediaPath for subtitle tracks. It blocks while ffprobe runs.
func (p *Pipeline) Open(ctx context.Context, mediaPath string) error {
	p.mu.Lock()
	if p.state == StateExtracting {
		p.mu.Unlock()
		return ErrBusy
	}
	p.resetLocked(mediaPath)
	if p.unavailable {
		st := p.setLocked(StateFallback, "Subtitle tools unavailable, using native subtitles")
		p.mu.Unlock()
		p.notify(st)
		return nil
	}
	st := p.setLocked(StateProbing, "Looking for subtitle tracks...")
	p.mu.Unlock()
	p.notify(st)

	found, err := p.op.ProbeSubtitleTracks(ctx, mediaPath)

	var out []Status
	p.mu.Lock()
	if p.mediaPath != mediaPath || p.state != StateProbing {
		// Superseded by a later Open.
		p.mu.Unlock()
		return nil
	}
	switch {
	case err != nil:
		if errors.Is(err, media.ErrToolMissing) {
			p.unavailable = true
			log.Warn("Subtitle extraction disabled: %v", err)
			out = append(out, p.setLocked(StateFallback, "ffprobe not found, subtitle extraction disabled for this session"))
		} else {
			log.Error("Probe %s: %v", mediaPath, err)
			out = append(out, p.setLocked(StateFallback, fmt.Sprintf("Could not read subtitle tracks: %v", err)))
		}
	case len(found) == 0:
		out = append(out, p.setLocked(StateNoTracksFound, "No subtitle tracks found"))
		out = append(out, p.setLocked(StateFallback, "No subtitle tracks found, using native subtitles"))
	default:
		p.tracks = found
		out = append(out, p.setLocked(StateTracksFound, fmt.Sprintf("Found %d subtitle tracks", len(found))))
		st := p.setLocked(StateAwaitingSelection, "Select a subtitle track")
		st.Tracks = append([]media.Track(nil), found...)
		out = append(out, st)
	}
	p.mu.Unlock()

	for _, st := range out {
		p.notify(st)
	}
	return nil
}

// Select extracts and loads the i-th discovered track. Extraction failures
// are not returned; they move the pipeline to StateFallback.
func (p *Pipeline) Select(ctx context.Context, i int) error {
	p.mu.Lock()
	switch p.state {
	case StateExtracting:
		p.mu.Unlock()
		return ErrBusy
	case StateAwaitingSelection:
	default:
		p.mu.Unlock()
		return ErrNoSelection
	}
	if i < 0 || i >= len(p.tracks) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0,%d)", ErrNoSuchTrack, i, len(p.tracks))
	}
	track := p.tracks[i]
	mediaPath := p.mediaPath
	out := media.TempPath(p.cfg.TempDir, p.cfg.SessionID, track)
	p.tempFiles = append(p.tempFiles, out)
	st := p.setLocked(StateExtracting, fmt.Sprintf("Extracting %s...", track.Label()))
	p.mu.Unlock()
	p.notify(st)

	err := p.op.ExtractTrack(ctx, mediaPath, track, out)

	var statuses []Status
	p.mu.Lock()
	if err != nil {
		if errors.Is(err, media.ErrToolMissing) {
			p.unavailable = true
		}
		log.Error("Extract %s from %s: %v", track.Label(), mediaPath, err)
		statuses = append(statuses, p.setLocked(StateExtractionFailed, fmt.Sprintf("Subtitle extraction failed: %v", err)))
		statuses = append(statuses, p.setLocked(StateFallback, "Using native subtitles"))
		p.mu.Unlock()
		p.emit(statuses)
		return nil
	}
	statuses = append(statuses, p.setLocked(StateExtractionSucceeded, "Subtitle track extracted"))
	p.mu.Unlock()

	res, readErr := subtitle.ReadFile(out)

	p.mu.Lock()
	statuses = append(statuses, p.loadLocked(res, readErr))
	p.mu.Unlock()
	p.emit(statuses)
	return nil
}

// Cancel abandons a pending track choice.
func (p *Pipeline) Cancel() error {
	p.mu.Lock()
	if p.state != StateAwaitingSelection {
		p.mu.Unlock()
		return ErrNoSelection
	}
	st := p.setLocked(StateFallback, "No track selected, using native subtitles")
	p.mu.Unlock()
	p.notify(st)
	return nil
}

// LoadExternal loads a standalone .srt file in place of an embedded track.
func (p *Pipeline) LoadExternal(path string) error {
	p.mu.Lock()
	if p.state == StateExtracting {
		p.mu.Unlock()
		return ErrBusy
	}
	p.entries = nil
	p.skipped = nil
	p.mu.Unlock()

	var (
		res subtitle.Result
		err error
	)
	if !file.HasExt(path, ".srt") {
		err = fmt.Errorf("%s is not an .srt file", path)
	} else {
		res, err = subtitle.ReadFile(path)
	}

	p.mu.Lock()
	st := p.loadLocked(res, err)
	p.mu.Unlock()
	p.notify(st)
	return nil
}

// FallbackTrack picks the embedded track the player should render natively,
// preferring the configured source language.
func (p *Pipeline) FallbackTrack() (media.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return media.Track{}, false
	}
	if p.cfg.SourceLanguage != language.Und {
		want, _ := p.cfg.SourceLanguage.Base()
		for _, t := range p.tracks {
			if tag := t.LanguageTag(); tag != language.Und {
				if base, _ := tag.Base(); base == want {
					return t, true
				}
			}
		}
	}
	return p.tracks[0], true
}

// Cleanup removes extracted temporary files.
func (p *Pipeline) Cleanup() {
	p.mu.Lock()
	files := p.tempFiles
	p.tempFiles = nil
	p.mu.Unlock()

	for _, f := range files {
		if err := file.RemoveQuietly(f); err != nil {
			log.Warn("Remove %s: %v", f, err)
		}
	}
}

func (p *Pipeline) loadLocked(res subtitle.Result, err error) Status {
	from := p.state
	if err != nil {
		log.Error("Load subtitles: %v", err)
		return p.forceLocked(from, StateFallback, fmt.Sprintf("Could not load subtitles: %v", err))
	}
	p.skipped = res.Skipped
	if res.Empty() {
		return p.forceLocked(from, StateFallback, "Subtitle file has no usable entries, using native subtitles")
	}
	p.entries = res.Entries
	msg := fmt.Sprintf("Loaded %d subtitles", len(res.Entries))
	if n := len(res.Skipped); n > 0 {
		msg = fmt.Sprintf("%s (%d malformed blocks skipped)", msg, n)
	}
	return p.forceLocked(from, StateLoaded, msg)
}

// forceLocked moves to a terminal state. Loading an external file may start
// from any settled state, so only the extraction path is checked.
func (p *Pipeline) forceLocked(from, to State, msg string) Status {
	if from == StateExtractionSucceeded {
		return p.setLocked(to, msg)
	}
	p.state = to
	log.Info("Subtitle pipeline: %s (%s)", to, msg)
	return Status{State: to, Message: msg}
}

func (p *Pipeline) setLocked(to State, msg string) Status {
	if !canTransition(p.state, to) {
		log.Error("Subtitle pipeline: illegal transition %s -> %s", p.state, to)
	}
	log.Debug("Subtitle pipeline: %s -> %s (%s)", p.state, to, msg)
	p.state = to
	return Status{State: to, Message: msg}
}

func (p *Pipeline) resetLocked(mediaPath string) {
	p.state = StateNoMedia
	p.mediaPath = mediaPath
	p.tracks = nil
	p.entries = nil
	p.skipped = nil
}

func (p *Pipeline) emit(statuses []Status) {
	for _, st := range statuses {
		p.notify(st)
	}
}
