package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/internal/dispatch"
	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/playback"
	"github.com/MimeLyc/wordsub/internal/subtitle"
	"github.com/MimeLyc/wordsub/internal/syncloop"
	"github.com/MimeLyc/wordsub/internal/token"
	"github.com/MimeLyc/wordsub/internal/tracks"
	"github.com/MimeLyc/wordsub/internal/translator"
	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

var ErrClosed = errors.New("session closed")

type Deps struct {
	Transport playback.Transport
	Operator  media.Operator
	Vocab     *vocab.Service
	// Fetcher is needed to change the language pair or backend at runtime.
	Fetcher   *vocab.BackendFetcher
	Presenter Presenter
}

// Session ties playback, the subtitle pipeline and word lookups together.
// One goroutine, started by Start, owns the presenter: sync ticks, lookup
// results, pipeline status and queued commands all run there in turn.
// Presenter methods must not call back into the session.
type Session struct {
	id         string
	opts       Options
	transport  playback.Transport
	presenter  Presenter
	vocab      *vocab.Service
	fetcher    *vocab.BackendFetcher
	pipeline   *tracks.Pipeline
	loop       *syncloop.Loop
	dispatcher *dispatch.Dispatcher

	cmds     chan func()
	statuses chan tracks.Status
	stop     chan struct{}
	done     chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu      sync.Mutex
	rate    float64
	started bool

	// owned by the session goroutine
	screen      *screen
	visible     bool
	translation *Translation
	hideTimer   *time.Timer
	hideC       <-chan time.Time
}

func NewSession(deps Deps, opts Options) *Session {
	opts = opts.withDefaults()
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = NopPresenter{}
	}
	s := &Session{
		id:        opts.SessionID,
		opts:      opts,
		transport: deps.Transport,
		presenter: presenter,
		vocab:     deps.Vocab,
		fetcher:   deps.Fetcher,
		cmds:      make(chan func()),
		statuses:  make(chan tracks.Status, 32),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		rate:      1,
		visible:   true,
	}
	s.screen = &screen{next: presenter}
	s.loop = syncloop.New(s.screen, nil)
	s.useTokenizer(token.New(opts.SourceLanguage))
	s.pipeline = tracks.NewPipeline(deps.Operator, tracks.Config{
		TempDir:        opts.TempDir,
		SessionID:      opts.SessionID,
		SourceLanguage: opts.SourceLanguage,
	}, s.enqueueStatus)
	s.dispatcher = dispatch.New(deps.Vocab, dispatch.Config{
		Workers: opts.Workers,
		Timeout: opts.FetchTimeout,
	})
	return s
}

func (s *Session) ID() string { return s.id }

// Start runs the session goroutine until ctx is done or Close is called.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		log.Info("Session %s started", s.id)
		go s.run(ctx)
	})
}

// Close stops the session goroutine, waits for running lookups and removes
// extracted subtitle files.
func (s *Session) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
		s.dispatcher.Close()
		s.pipeline.Cleanup()
		log.Info("Session %s closed", s.id)
	})
	return nil
}

// Do queues fn to run on the session goroutine.
func (s *Session) Do(fn func()) error {
	select {
	case s.cmds <- fn:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-s.done:
		return ErrClosed
	}
}

// call runs fn on the session goroutine and waits for it.
func (s *Session) call(fn func()) error {
	ran := make(chan struct{})
	if err := s.Do(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.SyncInterval)
	defer ticker.Stop()
	defer s.stopHideTimer()

	results := s.dispatcher.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.guard("sync tick", func() { s.loop.Step(s.transport) })
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			s.guard("lookup result", func() { s.onResult(res) })
		case st := <-s.statuses:
			s.guard("pipeline status", func() { s.onStatus(st) })
		case fn := <-s.cmds:
			s.guard("command", fn)
		case <-s.hideC:
			s.hideC = nil
			s.hideTimer = nil
			s.guard("hide translation", s.presenter.HideTranslation)
		}
	}
}

func (s *Session) guard(what string, fn func()) {
	err := SafeExecute(func() error {
		fn()
		return nil
	})
	if err != nil {
		log.Error("Session %s: %s: %v", s.id, what, err)
	}
}

func (s *Session) enqueueStatus(st tracks.Status) {
	select {
	case s.statuses <- st:
	case <-s.stop:
	}
}

func (s *Session) onStatus(st tracks.Status) {
	if st.Message != "" {
		s.presenter.ShowStatus(st.Message)
	}
	if len(st.Tracks) > 0 {
		s.presenter.ShowTracks(st.Tracks)
	}
	switch st.State {
	case tracks.StateProbing:
		s.loop.SetEntries(nil)
	case tracks.StateExtractionFailed:
		log.Warn("%v", NewError(ErrExtraction, st.Message).WithContext("media", s.pipeline.MediaPath()))
	case tracks.StateLoaded:
		s.useEntries()
	case tracks.StateFallback:
		s.useNative()
	}
}

func (s *Session) useEntries() {
	entries := s.pipeline.Entries()
	if skipped := s.pipeline.Skipped(); len(skipped) > 0 {
		log.Warn("%v", NewError(ErrParse, fmt.Sprintf("%d malformed blocks skipped", len(skipped))))
	}
	if tag := subtitle.DetectLanguage(entries); tag != language.Und {
		s.useTokenizer(token.New(tag))
		if s.opts.SourceLanguage == language.Und && s.fetcher != nil {
			s.fetcher.SetSource(tag)
		}
		log.Debug("Subtitle language detected as %s", tag)
	}
	s.loop.SetEntries(entries)
	if err := s.transport.HideNativeSubtitles(); err != nil {
		Report(WrapError(err, ErrPlayback, "hide native subtitles"))
	}
}

// useTokenizer keeps displayed token keys and lookup keys the same.
func (s *Session) useTokenizer(tok *token.Tokenizer) {
	s.loop.SetTokenizer(tok)
	if s.vocab != nil {
		s.vocab.SetNormalize(tok.Normalize)
	}
}

func (s *Session) useNative() {
	s.loop.SetEntries(nil)
	lang := s.opts.SourceLanguage
	if track, ok := s.pipeline.FallbackTrack(); ok {
		if tag := track.LanguageTag(); tag != language.Und {
			lang = tag
		}
	}
	if err := s.transport.NativeSubtitles(lang); err != nil {
		Report(WrapError(err, ErrPlayback, "enable native subtitles"))
	}
}

func (s *Session) onResult(res dispatch.Result) {
	l := res.Lookup
	if l.Failed {
		log.Warn("%v", NewError(ErrTranslation, l.Translation).WithContext("word", l.Word))
	}
	if l.PersistErr != nil {
		Report(WrapError(l.PersistErr, ErrPersistence, "save translation").WithContext("word", l.Word))
		s.presenter.ShowStatus(fmt.Sprintf("Could not save the translation of %q", l.Word))
	}
	t := Translation{
		JobID:       res.JobID,
		Word:        l.Word,
		Translation: l.Translation,
		Sentence:    res.Sentence,
		Cached:      l.Cached,
		Failed:      l.Failed,
	}
	s.translation = &t
	if !s.visible {
		return
	}
	s.presenter.ShowTranslation(t)
	s.armHideTimer()
}

func (s *Session) armHideTimer() {
	s.stopHideTimer()
	s.hideTimer = time.NewTimer(s.opts.DisplayTTL)
	s.hideC = s.hideTimer.C
}

func (s *Session) stopHideTimer() {
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}
	s.hideTimer = nil
	s.hideC = nil
}

// OpenMedia loads path into the transport and probes it for subtitle tracks.
// It blocks while ffprobe runs.
func (s *Session) OpenMedia(ctx context.Context, path string) error {
	if s.pipeline.State() == tracks.StateExtracting {
		return tracks.ErrBusy
	}
	if err := s.transport.Load(ctx, path); err != nil {
		return Report(WrapError(err, ErrPlayback, "load media").WithContext("path", path))
	}
	return s.pipeline.Open(ctx, path)
}

// SelectTrack extracts and loads the i-th discovered track. It blocks while
// ffmpeg runs; a second call meanwhile gets tracks.ErrBusy.
func (s *Session) SelectTrack(ctx context.Context, i int) error {
	return s.pipeline.Select(ctx, i)
}

func (s *Session) CancelTrackSelection() error {
	return s.pipeline.Cancel()
}

// LoadSubtitles replaces the active subtitles with an external .srt file.
func (s *Session) LoadSubtitles(path string) error {
	return s.pipeline.LoadExternal(path)
}

func (s *Session) Tracks() []media.Track {
	return s.pipeline.Tracks()
}

// ActivateWord queues a translation of word and returns the job id at once.
// Playback is paused first when configured.
func (s *Session) ActivateWord(word, sentence string) (string, error) {
	select {
	case <-s.stop:
		return "", ErrClosed
	default:
	}
	if s.opts.PauseOnActivate && s.transport.IsPlaying() {
		if err := s.transport.Pause(); err != nil {
			Report(WrapError(err, ErrPlayback, "pause on word activation"))
		}
	}
	return s.dispatcher.Activate(word, sentence), nil
}

func (s *Session) Play() error {
	return s.playbackErr("play", s.transport.Play())
}

func (s *Session) Pause() error {
	return s.playbackErr("pause", s.transport.Pause())
}

func (s *Session) Stop() error {
	if err := s.transport.Stop(); err != nil {
		return s.playbackErr("stop", err)
	}
	return s.Do(s.loop.Clear)
}

// Seek moves the position by delta seconds and returns the new position.
func (s *Session) Seek(delta float64) (float64, error) {
	pos, err := playback.SeekRelative(s.transport, delta)
	return pos, s.playbackErr("seek", err)
}

func (s *Session) SetPosition(seconds float64) error {
	return s.playbackErr("set position", s.transport.SetPosition(seconds))
}

// SetRate accepts one of playback.SpeedPresets.
func (s *Session) SetRate(multiplier float64) error {
	if !playback.ValidRate(multiplier) {
		return NewError(ErrPlayback, fmt.Sprintf("unsupported playback rate %v", multiplier))
	}
	if err := s.transport.SetRate(multiplier); err != nil {
		return s.playbackErr("set rate", err)
	}
	s.mu.Lock()
	s.rate = multiplier
	s.mu.Unlock()
	return nil
}

func (s *Session) playbackErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return WrapError(err, ErrPlayback, op)
}

// ToggleTranslations flips translation visibility and returns the new value.
// Hiding also removes the translation on screen.
func (s *Session) ToggleTranslations() (bool, error) {
	var visible bool
	err := s.call(func() {
		s.visible = !s.visible
		visible = s.visible
		if !visible {
			s.stopHideTimer()
			s.presenter.HideTranslation()
		}
	})
	return visible, err
}

// SetTargetLanguage applies to lookups that miss the cache from now on.
func (s *Session) SetTargetLanguage(tag language.Tag) error {
	if s.fetcher == nil {
		return NewError(ErrConfig, "target language cannot change without a backend fetcher")
	}
	if tag == language.Und {
		return NewError(ErrConfig, "target language is required")
	}
	s.fetcher.SetTarget(tag)
	log.Info("Target language set to %s", tag)
	return s.Do(func() {
		s.presenter.ShowStatus("Translating to " + translator.LanguageName(tag))
	})
}

// SetBackend swaps the translation backend for later lookups.
func (s *Session) SetBackend(backend translator.Backend) error {
	if s.fetcher == nil {
		return NewError(ErrConfig, "backend cannot change without a backend fetcher")
	}
	s.fetcher.SetBackend(backend)
	log.Info("Translation backend set to %s", backend.Name())
	return nil
}

func (s *Session) Snapshot() (Snapshot, error) {
	snap := Snapshot{
		SessionID:      s.id,
		MediaPath:      s.pipeline.MediaPath(),
		TrackState:     s.pipeline.State(),
		Tracks:         s.pipeline.Tracks(),
		Playing:        s.transport.IsPlaying(),
		PendingLookups: s.dispatcher.Pending(),
		CachedWords:    s.vocab.Cache().Len(),
		SourceLanguage: s.opts.SourceLanguage.String(),
	}
	if pos, err := s.transport.Position(); err == nil {
		snap.Position = pos
	}
	if dur, err := s.transport.Duration(); err == nil {
		snap.Duration = dur
	}
	snap.Clock = playback.FormatClock(snap.Position)
	snap.Progress = playback.Progress(snap.Position, snap.Duration)
	if s.fetcher != nil {
		source, target := s.fetcher.Languages()
		snap.SourceLanguage = source.String()
		snap.TargetLanguage = target.String()
	}
	s.mu.Lock()
	snap.Rate = s.rate
	s.mu.Unlock()

	err := s.call(func() {
		snap.TranslationsVisible = s.visible
		if line, ok := s.screen.current(); ok {
			snap.Line = &line
		}
		if s.translation != nil {
			t := *s.translation
			snap.Translation = &t
		}
	})
	return snap, err
}

// screen remembers the line on display so snapshots can report it.
type screen struct {
	next  Presenter
	line  syncloop.Line
	shown bool
}

func (sc *screen) ShowLine(line syncloop.Line) {
	sc.line = line
	sc.shown = true
	sc.next.ShowLine(line)
}

func (sc *screen) ClearLine() {
	if !sc.shown {
		return
	}
	sc.shown = false
	sc.line = syncloop.Line{}
	sc.next.ClearLine()
}

func (sc *screen) current() (syncloop.Line, bool) {
	return sc.line, sc.shown
}
