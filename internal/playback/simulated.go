package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
)

// Simulated is a headless transport whose clock follows wall time while
// playing. It lets the engine run without a real player.
type Simulated struct {
	now func() time.Time

	mu        sync.Mutex
	path      string
	duration  float64
	base      float64
	startedAt time.Time
	playing   bool
	rate      float64
	native    bool
	nativeTag language.Tag
}

type SimulatedOption func(*Simulated)

// WithDuration fixes the media length reported after Load.
func WithDuration(seconds float64) SimulatedOption {
	return func(s *Simulated) { s.duration = seconds }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) { s.now = now }
}

func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{now: time.Now, rate: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) Load(_ context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrNoMedia
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.base = 0
	s.playing = false
	s.native = false
	return nil
}

func (s *Simulated) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return ErrNoMedia
	}
	if !s.playing {
		s.startedAt = s.now()
		s.playing = true
	}
	return nil
}

func (s *Simulated) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return ErrNoMedia
	}
	s.freezeLocked()
	return nil
}

func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.base = 0
	return nil
}

func (s *Simulated) SetPosition(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return ErrNoMedia
	}
	if seconds < 0 {
		seconds = 0
	}
	s.base = seconds
	s.startedAt = s.now()
	return nil
}

func (s *Simulated) Position() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return 0, ErrNoMedia
	}
	return s.positionLocked(), nil
}

func (s *Simulated) Duration() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return 0, ErrNoMedia
	}
	return s.duration, nil
}

// SetRate changes the speed without moving the current position.
func (s *Simulated) SetRate(multiplier float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if multiplier <= 0 {
		multiplier = 1
	}
	if s.playing {
		s.base = s.positionLocked()
		s.startedAt = s.now()
	}
	s.rate = multiplier
	return nil
}

func (s *Simulated) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing && s.duration > 0 && s.positionLocked() >= s.duration {
		s.freezeLocked()
	}
	return s.playing
}

func (s *Simulated) NativeSubtitles(lang language.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.native = true
	s.nativeTag = lang
	return nil
}

func (s *Simulated) HideNativeSubtitles() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.native = false
	return nil
}

// Native reports whether native rendering is on and in which language.
func (s *Simulated) Native() (bool, language.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.native, s.nativeTag
}

func (s *Simulated) Close() error {
	return nil
}

func (s *Simulated) freezeLocked() {
	if s.playing {
		s.base = s.positionLocked()
		s.playing = false
	}
}

func (s *Simulated) positionLocked() float64 {
	pos := s.base
	if s.playing {
		pos += s.now().Sub(s.startedAt).Seconds() * s.rate
	}
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}
	return pos
}
