// Package message defines the request, result and progress payloads shared
// by every transport.
package message

import (
	"encoding/base64"
	"time"

	"github.com/4xachi/pcast/internal/podcast"
)

// ResponseMode controls which parts of the artifact are returned to the
// caller. The artifact is always generated in full; the mode only trims the
// response, which matters for transports with small message limits.
type ResponseMode string

const (
	// ResponseModeNone returns metadata only (id, duration, location, warnings).
	ResponseModeNone ResponseMode = "none"

	// ResponseModeText adds the transcript.
	ResponseModeText ResponseMode = "text"

	// ResponseModeAudio adds the base64 WAV audio.
	ResponseModeAudio ResponseMode = "audio"

	// ResponseModeTextAudio returns both transcript and audio.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

// Request asks for one podcast.
type Request struct {
	// ID identifies the request; transports assign a UUID when empty.
	ID string `json:"id,omitempty"`

	// Source identifies the sender (e.g., "cli", "studio-app").
	Source string `json:"source,omitempty"`

	// Podcast is the generation config. Empty fields take their defaults.
	Podcast podcast.Config `json:"podcast"`

	// ResponseMode selects the returned content. Defaults to "text+audio".
	ResponseMode ResponseMode `json:"response_mode,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// Mode returns the effective response mode.
func (r *Request) Mode() ResponseMode {
	switch r.ResponseMode {
	case ResponseModeNone, ResponseModeText, ResponseModeAudio, ResponseModeTextAudio:
		return r.ResponseMode
	default:
		return ResponseModeTextAudio
	}
}

// WantText returns true if the response mode includes the transcript.
func (m ResponseMode) WantText() bool {
	return m == ResponseModeText || m == ResponseModeTextAudio
}

// WantAudio returns true if the response mode includes the audio.
func (m ResponseMode) WantAudio() bool {
	return m == ResponseModeAudio || m == ResponseModeTextAudio
}

// Result is the outcome of one request.
type Result struct {
	// RequestID is the original request ID.
	RequestID string `json:"request_id"`

	// RunID identifies the pipeline run, for log correlation.
	RunID string `json:"run_id,omitempty"`

	// ArtifactID is shared by the stored audio and transcript files.
	ArtifactID string `json:"artifact_id,omitempty"`

	Topic string `json:"topic,omitempty"`

	// DurationSeconds is the play time of the assembled audio.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	SampleRate int `json:"sample_rate,omitempty"`

	// Turns is the number of dialogue turns in the script.
	Turns int `json:"turns,omitempty"`

	// Transcript is the "Name: utterance" text. Set in text modes.
	Transcript string `json:"transcript,omitempty"`

	// Audio is the WAV file, base64-encoded. Set in audio modes.
	Audio string `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio.
	ContentType string `json:"content_type,omitempty"`

	// SubstitutedTurns lists turns rendered as silence.
	SubstitutedTurns []podcast.TurnFailure `json:"substituted_turns,omitempty"`

	Warnings []string `json:"warnings,omitempty"`

	// Location is where the artifact was stored, if anywhere.
	Location string `json:"location,omitempty"`

	GeneratedAt time.Time `json:"generated_at,omitzero"`

	// Error is set if the run failed; Stage and Kind classify it.
	Error string `json:"error,omitempty"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *Result) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// AudioBytes decodes Audio.
func (r *Result) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// Progress is a pipeline progress notification for a request.
type Progress struct {
	RequestID string `json:"request_id"`
	RunID     string `json:"run_id"`
	State     string `json:"state"`

	// Turn fields are set for per-turn events while synthesizing.
	TurnIndex   *int `json:"turn_index,omitempty"`
	Substituted bool `json:"substituted,omitempty"`
	Completed   int  `json:"completed,omitempty"`
	Total       int  `json:"total,omitempty"`

	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}
