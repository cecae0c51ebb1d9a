package httpapi

import (
	"sync"

	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/service"
	"github.com/MimeLyc/wordsub/internal/syncloop"
	"github.com/MimeLyc/wordsub/pkg/log"
)

const (
	EventLine              = "line"
	EventClear             = "clear"
	EventTranslation       = "translation"
	EventTranslationHidden = "translation_hidden"
	EventStatus            = "status"
	EventTracks            = "tracks"
)

// Event is one message on the session stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type statusData struct {
	Message string `json:"message"`
}

// Broker fans session output out to stream subscribers. It implements
// service.Presenter. A subscriber that falls behind loses events rather than
// stalling the session.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
}

var _ service.Presenter = (*Broker)(nil)

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Warn("Stream subscriber is behind, dropped %s event", ev.Type)
		}
	}
}

func (b *Broker) ShowLine(line syncloop.Line) {
	b.Publish(Event{Type: EventLine, Data: line})
}

func (b *Broker) ClearLine() {
	b.Publish(Event{Type: EventClear})
}

func (b *Broker) ShowTranslation(t service.Translation) {
	b.Publish(Event{Type: EventTranslation, Data: t})
}

func (b *Broker) HideTranslation() {
	b.Publish(Event{Type: EventTranslationHidden})
}

func (b *Broker) ShowStatus(msg string) {
	b.Publish(Event{Type: EventStatus, Data: statusData{Message: msg}})
}

func (b *Broker) ShowTracks(tracks []media.Track) {
	b.Publish(Event{Type: EventTracks, Data: tracks})
}
