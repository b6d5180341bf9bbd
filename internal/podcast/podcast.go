// Package podcast defines the core data types flowing through the pcast pipeline.
package podcast

import (
	"time"
)

// VoiceCategory is the coarse voice classification used to pick a synthesizer voice.
type VoiceCategory string

const (
	VoiceMale    VoiceCategory = "male"
	VoiceFemale  VoiceCategory = "female"
	VoiceNeutral VoiceCategory = "neutral"
)

// Language is the language (or code-mixing policy) of the generated script.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageTagalog Language = "tagalog"
	LanguageTaglish Language = "taglish"
)

// Accent influences voice selection and the prosody instructions sent to TTS.
type Accent string

const (
	AccentEnglish Accent = "english"
	AccentTagalog Accent = "tagalog"
	AccentNeutral Accent = "neutral"
)

// DurationClass is the coarse target length bucket of a podcast.
type DurationClass string

const (
	DurationShort  DurationClass = "short"
	DurationMedium DurationClass = "medium"
)

// Minutes returns the target length in minutes for the duration class.
func (d DurationClass) Minutes() int {
	if d == DurationMedium {
		return 5
	}
	return 3
}

// Speaker identifies one of the two configured podcast speakers.
type Speaker string

const (
	SpeakerA Speaker = "A"
	SpeakerB Speaker = "B"
)

// Config describes one podcast generation run. It is passed by value through
// every stage and must not change once generation has started.
type Config struct {
	// SpeakerA is the first speaker's name, used verbatim as a dialogue label.
	SpeakerA string `json:"speaker_a" mapstructure:"speaker_a" validate:"required,max=40"`

	// SpeakerB is the second speaker's name.
	SpeakerB string `json:"speaker_b" mapstructure:"speaker_b" validate:"required,max=40"`

	// VoiceA is the voice category for speaker A ("male", "female", "neutral").
	VoiceA VoiceCategory `json:"voice_a" mapstructure:"voice_a" validate:"required,oneof=male female neutral"`

	// VoiceB is the voice category for speaker B.
	VoiceB VoiceCategory `json:"voice_b" mapstructure:"voice_b" validate:"required,oneof=male female neutral"`

	// Language is the script language: "english", "tagalog" or "taglish".
	Language Language `json:"language" mapstructure:"language" validate:"required,oneof=english tagalog taglish"`

	// Accent is the delivery accent: "english", "tagalog" or "neutral".
	Accent Accent `json:"accent" mapstructure:"accent" validate:"required,oneof=english tagalog neutral"`

	// Duration is the target length bucket: "short" (~3 min) or "medium" (~5 min).
	Duration DurationClass `json:"duration" mapstructure:"duration" validate:"required,oneof=short medium"`

	// Topic is the free-text podcast topic.
	Topic string `json:"topic" mapstructure:"topic" validate:"required,max=2000"`
}

// WithDefaults returns a copy of c with empty fields filled in.
func (c Config) WithDefaults() Config {
	if c.SpeakerA == "" {
		c.SpeakerA = "Host 1"
	}
	if c.SpeakerB == "" {
		c.SpeakerB = "Host 2"
	}
	if c.VoiceA == "" {
		c.VoiceA = VoiceMale
	}
	if c.VoiceB == "" {
		c.VoiceB = VoiceFemale
	}
	if c.Language == "" {
		c.Language = LanguageEnglish
	}
	if c.Accent == "" {
		c.Accent = AccentNeutral
	}
	if c.Duration == "" {
		c.Duration = DurationShort
	}
	return c
}

// SpeakerName returns the configured name for the given speaker.
func (c Config) SpeakerName(s Speaker) string {
	if s == SpeakerB {
		return c.SpeakerB
	}
	return c.SpeakerA
}

// ScriptTurn is one speaker's contiguous utterance within the dialogue.
type ScriptTurn struct {
	Speaker Speaker `json:"speaker"`
	Index   int     `json:"index"`
	Text    string  `json:"text"`
}

// VoiceProfile is the resolved synthesizer voice for one speaker.
type VoiceProfile struct {
	// VoiceID is the synthesizer voice identifier (e.g., "kore").
	VoiceID string `json:"voice_id"`

	Category VoiceCategory `json:"category"`
	Accent   Accent        `json:"accent"`

	// LanguageTag is a BCP-47 tag for the accent, empty for neutral delivery.
	LanguageTag string `json:"language_tag,omitempty"`

	// SpeakingRate is a relative rate hint where 1.0 is the voice's natural pace.
	SpeakingRate float64 `json:"speaking_rate"`

	// Style is a natural-language delivery instruction for style-aware TTS backends.
	Style string `json:"style,omitempty"`
}

// AudioSegment is the synthesized audio for one turn.
type AudioSegment struct {
	// Index mirrors the ScriptTurn ordinal.
	Index int

	// PCM holds interleaved little-endian samples.
	PCM []byte

	SampleRate    int
	Channels      int
	BitsPerSample int
	Duration      time.Duration

	// Substituted is true when the turn failed and PCM is a silence placeholder.
	Substituted bool
}

// TurnFailure records a turn whose audio could not be synthesized.
type TurnFailure struct {
	Index    int     `json:"index"`
	Speaker  Speaker `json:"speaker"`
	Attempts int     `json:"attempts"`
	Error    string  `json:"error"`
}

// Artifact is the final output of one generation run.
type Artifact struct {
	// ID is derived from the topic and generation timestamp; the transcript
	// and audio files of a run share it.
	ID    string `json:"id"`
	Topic string `json:"topic"`

	// Audio is the assembled podcast as a WAV file.
	Audio       []byte `json:"-"`
	ContentType string `json:"content_type"`
	SampleRate  int    `json:"sample_rate"`

	Duration   time.Duration `json:"duration"`
	Transcript string        `json:"transcript"`
	Turns      []ScriptTurn  `json:"turns"`

	// SubstitutedTurns lists turns whose audio was replaced by silence.
	SubstitutedTurns []TurnFailure `json:"substituted_turns,omitempty"`

	// Warnings collects non-fatal issues (discarded script lines, storage errors).
	Warnings []string `json:"warnings,omitempty"`

	// Location is where the artifact was stored, if a store is configured.
	Location string `json:"location,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}
