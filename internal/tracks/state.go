package tracks

import (
	"errors"

	"github.com/MimeLyc/wordsub/internal/media"
)

type State string

const (
	StateNoMedia             State = "no_media"
	StateProbing             State = "probing"
	StateTracksFound         State = "tracks_found"
	StateNoTracksFound       State = "no_tracks_found"
	StateAwaitingSelection   State = "awaiting_selection"
	StateExtracting          State = "extracting"
	StateExtractionSucceeded State = "extraction_succeeded"
	StateExtractionFailed    State = "extraction_failed"
	StateLoaded              State = "loaded"
	StateFallback            State = "fallback_rendering"
)

var (
	// ErrBusy is returned while an extraction is running.
	ErrBusy = errors.New("subtitle extraction in progress")
	// ErrNoSelection is returned when no track choice is pending.
	ErrNoSelection = errors.New("no subtitle track selection pending")
	ErrNoSuchTrack = errors.New("no such subtitle track")
)

// transitions lists the legal moves of the pipeline. Opening new media or
// loading an external file is allowed from any state except StateExtracting.
var transitions = map[State][]State{
	StateNoMedia:             {StateProbing, StateFallback},
	StateProbing:             {StateTracksFound, StateNoTracksFound, StateFallback},
	StateTracksFound:         {StateAwaitingSelection},
	StateNoTracksFound:       {StateFallback},
	StateAwaitingSelection:   {StateExtracting, StateFallback},
	StateExtracting:          {StateExtractionSucceeded, StateExtractionFailed},
	StateExtractionSucceeded: {StateLoaded, StateFallback},
	StateExtractionFailed:    {StateFallback},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is reported to the observer on every transition.
type Status struct {
	State   State         `json:"state"`
	Message string        `json:"message"`
	Tracks  []media.Track `json:"tracks,omitempty"`
}

type Observer func(Status)
