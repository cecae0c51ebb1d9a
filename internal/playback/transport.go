package playback

import (
	"context"
	"errors"

	"golang.org/x/text/language"
)

// ErrNoMedia is returned by controls used before Load.
var ErrNoMedia = errors.New("no media loaded")

// Transport is the video player the session drives. Positions and durations
// are in seconds.
type Transport interface {
	Load(ctx context.Context, path string) error
	Play() error
	Pause() error
	Stop() error
	SetPosition(seconds float64) error
	Position() (float64, error)
	Duration() (float64, error)
	SetRate(multiplier float64) error
	IsPlaying() bool
	// NativeSubtitles turns on the player's own subtitle rendering,
	// preferring a track in lang.
	NativeSubtitles(lang language.Tag) error
	// HideNativeSubtitles turns native rendering off again.
	HideNativeSubtitles() error
	Close() error
}
