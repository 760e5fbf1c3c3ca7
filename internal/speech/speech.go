// Package speech defines the contract of a speech-synthesis capability and
// provides a backend that drives the espeak-ng command.
package speech

import (
	"errors"
	"fmt"
)

// Utterance is one piece of text to synthesize. Zero Rate, Pitch and Volume
// mean the backend default.
type Utterance struct {
	Text   string
	Voice  string
	Rate   float64 // 0.1 - 10, 1 is normal speed
	Pitch  float64 // 0 - 2, 1 is normal pitch
	Volume float64 // 0 - 1
}

// Validate checks that the utterance can be spoken.
func (u Utterance) Validate() error {
	if u.Text == "" {
		return &Error{Code: CodeInvalidArgument, Err: errors.New("empty text")}
	}
	return u.CheckSettings()
}

// CheckSettings validates rate, pitch and volume only.
func (u Utterance) CheckSettings() error {
	switch {
	case u.Rate < 0 || u.Rate > 10:
		return &Error{Code: CodeInvalidArgument, Err: fmt.Errorf("rate %v out of range", u.Rate)}
	case u.Pitch < 0 || u.Pitch > 2:
		return &Error{Code: CodeInvalidArgument, Err: fmt.Errorf("pitch %v out of range", u.Pitch)}
	case u.Volume < 0 || u.Volume > 1:
		return &Error{Code: CodeInvalidArgument, Err: fmt.Errorf("volume %v out of range", u.Volume)}
	}
	return nil
}

// Voice is a synthesizer voice.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Code classifies a synthesis failure.
type Code string

const (
	CodeInterrupted      Code = "interrupted"
	CodeCanceled         Code = "canceled"
	CodeAudioBusy        Code = "audio-busy"
	CodeSynthesisFailed  Code = "synthesis-failed"
	CodeVoiceUnavailable Code = "voice-unavailable"
	CodeInvalidArgument  Code = "invalid-argument"
	CodeNotAllowed       Code = "not-allowed"
)

// Error is a failure reported by a speech backend.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "speech: " + string(e.Code)
	}
	return fmt.Sprintf("speech: %s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of a speech error in err's chain, or "".
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCancellation reports whether err is the expected result of canceling an
// utterance rather than a real failure.
func IsCancellation(err error) bool {
	switch CodeOf(err) {
	case CodeInterrupted, CodeCanceled:
		return true
	}
	return false
}
