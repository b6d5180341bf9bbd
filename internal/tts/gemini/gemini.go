// Package gemini implements the TTS Synthesizer using the Gemini speech
// generation REST API.
//
// The response carries raw L16 PCM as base64 inline data; the sample rate is
// read from its MIME type and the PCM is wrapped in a WAV container.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/4xachi/pcast/internal/audio"
	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/tts"
)

const defaultModel = "gemini-2.5-flash-preview-tts"

// Synthesizer calls models/{model}:generateContent with an AUDIO response modality.
type Synthesizer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Gemini synthesizer from config.
func New(cfg config.GeminiConfig) *Synthesizer {
	base := cfg.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Synthesizer{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{},
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "gemini" }

// Synthesize renders text with the prebuilt voice named by opts.Voice.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.Opts) (*tts.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	if opts.Voice == "" {
		return nil, fmt.Errorf("gemini synthesis needs a voice")
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt(text, opts)}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig:  voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voiceName(opts.Voice)}},
				LanguageCode: opts.LanguageTag,
			},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling speech request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating speech request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &tts.StatusError{Backend: "gemini", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding speech response: %w", err)
	}

	var (
		pcm  bytes.Buffer
		mime string
	)
	if len(genResp.Candidates) > 0 {
		for _, p := range genResp.Candidates[0].Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding inline audio: %w", err)
			}
			pcm.Write(chunk)
			if mime == "" {
				mime = p.InlineData.MimeType
			}
		}
	}
	if pcm.Len() == 0 {
		reason := ""
		if len(genResp.Candidates) > 0 {
			reason = genResp.Candidates[0].FinishReason
		}
		return nil, fmt.Errorf("gemini returned no audio (finish reason %q)", reason)
	}

	f := audio.ParseL16MimeType(mime)
	slog.Debug("gemini speech", "voice", opts.Voice, "mime", mime, "pcm_bytes", pcm.Len())
	return &tts.Result{
		Audio:       audio.EncodeWAV(pcm.Bytes(), f),
		ContentType: "audio/wav",
		SampleRate:  f.SampleRate,
		Channels:    f.Channels,
	}, nil
}

// Close is a no-op for the Gemini synthesizer.
func (s *Synthesizer) Close() error { return nil }

// prompt prefixes the delivery instruction. The API has no rate control, so
// a slower rate is requested in words.
func prompt(text string, opts tts.Opts) string {
	var style []string
	if opts.Style != "" {
		style = append(style, opts.Style)
	}
	if opts.SpeakingRate > 0 && opts.SpeakingRate < 1 {
		style = append(style, "Speak slightly slower than usual.")
	}
	if len(style) == 0 {
		return text
	}
	return strings.Join(style, " ") + "\n\n" + text
}

// voiceName maps a voice id to the API's capitalized name ("kore" -> "Kore").
func voiceName(id string) string {
	r, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(r)) + id[size:]
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig  voiceConfig `json:"voiceConfig"`
	LanguageCode string      `json:"languageCode,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}
