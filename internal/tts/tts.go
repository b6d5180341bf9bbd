// Package tts defines the interface for text-to-speech synthesis.
//
// pcast renders each script turn with one Synthesize call. Backends return a
// WAV file; the assembler normalizes whatever format they produce.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Opts controls synthesis behavior.
type Opts struct {
	// Voice is the pcast voice id (e.g., "kore") selected by the voice registry.
	Voice string

	// LanguageTag is a BCP-47 hint (e.g., "en-US", "fil-PH"). May be empty.
	LanguageTag string

	// Style is a free-form delivery instruction for backends that accept one.
	Style string

	// SpeakingRate scales speaking speed; 1.0 is normal.
	SpeakingRate float64
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "gemini", "piper").
	Name() string

	// Synthesize generates audio from the given text.
	Synthesize(ctx context.Context, text string, opts Opts) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Result holds the output of TTS synthesis.
type Result struct {
	// Audio is the synthesized audio as a WAV file.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// SampleRate is the audio sample rate in Hz (e.g., 24000).
	SampleRate int

	// Channels is the number of audio channels (typically 1).
	Channels int
}

// ErrEmptyText is returned when asked to synthesize nothing.
var ErrEmptyText = errors.New("empty text for synthesis")

// StatusError is a non-2xx response from an HTTP backend.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s synthesis failed (status %d): %s", e.Backend, e.StatusCode, e.Body)
}

// IsTransient reports whether a failed call is worth retrying: network
// errors, timeouts, rate limiting and server errors are; everything else,
// including client errors and cancellation, is not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyText) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode == http.StatusRequestTimeout ||
			se.StatusCode >= 500
	}

	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF)
}
