package service

import (
	"time"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/syncloop"
	"github.com/MimeLyc/wordsub/internal/tracks"
	"golang.org/x/text/language"
)

// Presenter renders session output. Every method is called on the session
// goroutine, one call at a time.
type Presenter interface {
	syncloop.Presenter
	ShowTranslation(t Translation)
	HideTranslation()
	ShowStatus(msg string)
	ShowTracks(tracks []media.Track)
}

// Translation is the outcome of one word activation as shown to the viewer.
type Translation struct {
	JobID       string `json:"job_id"`
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Sentence    string `json:"sentence,omitempty"`
	Cached      bool   `json:"cached"`
	Failed      bool   `json:"failed"`
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	SessionID           string         `json:"session_id"`
	MediaPath           string         `json:"media_path,omitempty"`
	TrackState          tracks.State   `json:"track_state"`
	Tracks              []media.Track  `json:"tracks,omitempty"`
	Line                *syncloop.Line `json:"line,omitempty"`
	Position            float64        `json:"position"`
	Duration            float64        `json:"duration"`
	Clock               string         `json:"clock"`
	Progress            float64        `json:"progress"`
	Playing             bool           `json:"playing"`
	Rate                float64        `json:"rate"`
	TranslationsVisible bool           `json:"translations_visible"`
	Translation         *Translation   `json:"translation,omitempty"`
	SourceLanguage      string         `json:"source_language"`
	TargetLanguage      string         `json:"target_language"`
	PendingLookups      int            `json:"pending_lookups"`
	CachedWords         int            `json:"cached_words"`
}

type Options struct {
	SessionID       string
	SyncInterval    time.Duration
	Workers         int
	FetchTimeout    time.Duration
	PauseOnActivate bool
	DisplayTTL      time.Duration
	TempDir         string
	SourceLanguage  language.Tag
}

// OptionsFromConfig maps the loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SyncInterval:    cfg.Sync.Interval,
		Workers:         cfg.Translate.Workers,
		FetchTimeout:    cfg.Translate.Timeout,
		PauseOnActivate: cfg.Translate.PauseOnActivate,
		DisplayTTL:      cfg.Translate.DisplayTTL,
		TempDir:         cfg.Media.TempDir,
		SourceLanguage:  cfg.Translate.SourceLanguage,
	}
}

func (o Options) withDefaults() Options {
	if o.SyncInterval <= 0 {
		o.SyncInterval = 100 * time.Millisecond
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.DisplayTTL <= 0 {
		o.DisplayTTL = 3 * time.Second
	}
	return o
}

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) ShowLine(syncloop.Line)      {}
func (NopPresenter) ClearLine()                  {}
func (NopPresenter) ShowTranslation(Translation) {}
func (NopPresenter) HideTranslation()            {}
func (NopPresenter) ShowStatus(string)           {}
func (NopPresenter) ShowTracks([]media.Track)    {}
