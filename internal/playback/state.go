package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docspeak/internal/speech"
)

// State is the lifecycle state of the engine.
type State int

const (
	Idle State = iota
	Speaking
	Paused
	Finished
	Errored
)

var stateNames = [...]string{"idle", "speaking", "paused", "finished", "errored"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", b)
}

// Options are fixed for the duration of a session. Zero values select the
// speech backend's defaults.
type Options struct {
	Voice  string  `json:"voice"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

func (o Options) utterance(text string) speech.Utterance {
	return speech.Utterance{
		Text:   text,
		Voice:  o.Voice,
		Rate:   o.Rate,
		Pitch:  o.Pitch,
		Volume: o.Volume,
	}
}

// Validate reports out-of-range settings.
func (o Options) Validate() error { return o.utterance("").CheckSettings() }

// Event is emitted to subscribers on every state change and every chunk
// submitted.
type Event struct {
	State State     `json:"state"`
	Index int       `json:"index"`
	Total int       `json:"total"` // -1 while chunking is still in progress
	Text  string    `json:"text,omitempty"`
	Err   error     `json:"-"`
	At    time.Time `json:"at"`
}

// Status is a snapshot of the engine.
type Status struct {
	State      State   `json:"state"`
	Playing    bool    `json:"playing"`
	Paused     bool    `json:"paused"`
	Index      int     `json:"index"`
	Queued     int     `json:"queued"`
	Total      int     `json:"total"`
	Options    Options `json:"options"`
	Generation uint64  `json:"generation"`
}

// ErrEmptyText is returned by Start for blank input.
var ErrEmptyText = errors.New("playback: text is empty")

// SpeechError is a synthesis failure surfaced to the caller of Start.
type SpeechError struct {
	Index int // chunk that failed
	Err   error
}

func (e *SpeechError) Error() string {
	return fmt.Sprintf("playback: chunk %d: %v", e.Index, e.Err)
}

func (e *SpeechError) Unwrap() error { return e.Err }

// Code returns the speech error code, if any.
func (e *SpeechError) Code() speech.Code { return speech.CodeOf(e.Err) }
