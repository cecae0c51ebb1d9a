package syncloop

import (
	"context"
	"time"

	"github.com/MimeLyc/wordsub/internal/subtitle"
	"github.com/MimeLyc/wordsub/internal/token"
	"github.com/MimeLyc/wordsub/pkg/log"
	"golang.org/x/text/language"
)

// Line is a subtitle entry split into clickable words.
type Line struct {
	Entry  subtitle.Entry `json:"entry"`
	Tokens []token.Token  `json:"tokens"`
}

// Presenter draws the active line.
type Presenter interface {
	ShowLine(line Line)
	ClearLine()
}

// Clock reports the playback position.
type Clock interface {
	Position() (float64, error)
	IsPlaying() bool
}

// Loop keeps the displayed line in step with the playback clock. It is not
// safe for concurrent use; Tick and SetEntries belong to one goroutine.
type Loop struct {
	presenter Presenter
	tokenizer *token.Tokenizer
	index     *subtitle.Index

	lastText  string
	displayed bool
}

func New(presenter Presenter, tokenizer *token.Tokenizer) *Loop {
	if tokenizer == nil {
		tokenizer = token.New(language.Und)
	}
	return &Loop{
		presenter: presenter,
		tokenizer: tokenizer,
		index:     subtitle.NewIndex(nil),
	}
}

// SetEntries replaces the subtitle entries and forgets the displayed line.
func (l *Loop) SetEntries(entries []subtitle.Entry) {
	l.index = subtitle.NewIndex(entries)
	l.clear()
	l.lastText = ""
}

// SetTokenizer changes how later lines are split.
func (l *Loop) SetTokenizer(t *token.Tokenizer) {
	if t != nil {
		l.tokenizer = t
	}
}

// Current returns the text on screen.
func (l *Loop) Current() (string, bool) {
	return l.lastText, l.displayed
}

// Tick resolves pos and redraws only when the active text changed.
func (l *Loop) Tick(pos float64, playing bool) {
	if !playing || l.index.Len() == 0 {
		return
	}
	entry, ok := l.index.At(pos)
	if !ok || entry.Text == "" {
		l.clear()
		return
	}
	if l.displayed && entry.Text == l.lastText {
		return
	}
	l.lastText = entry.Text
	l.displayed = true
	l.presenter.ShowLine(Line{Entry: entry, Tokens: l.tokenizer.Tokenize(entry.Text)})
}

// Clear removes the displayed line. The next tick while playing redraws it.
func (l *Loop) Clear() {
	l.clear()
}

func (l *Loop) clear() {
	if !l.displayed {
		return
	}
	l.displayed = false
	l.lastText = ""
	l.presenter.ClearLine()
}

// Run ticks every interval until ctx is done. A clock error skips the tick.
func (l *Loop) Run(ctx context.Context, clock Clock, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Step(clock)
		}
	}
}

// Step reads clock once and ticks.
func (l *Loop) Step(clock Clock) {
	if clock == nil {
		return
	}
	playing := clock.IsPlaying()
	if !playing {
		return
	}
	pos, err := clock.Position()
	if err != nil {
		log.Debug("Sync tick skipped: %v", err)
		return
	}
	l.Tick(pos, playing)
}
