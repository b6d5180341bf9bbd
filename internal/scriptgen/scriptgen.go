// Package scriptgen builds podcast script prompts and sends them to an AI text
// service.
//
// pcast ships with three backends: Gemini (cloud, default), OpenAI (cloud)
// and Local (self-hosted via Ollama). The Script type owns the prompt and the
// result checks; backends only move text over the wire.
package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/4xachi/pcast/internal/podcast"
)

// ErrContentBlocked is returned by backends when the service refused the
// prompt on safety or content-policy grounds.
var ErrContentBlocked = errors.New("content blocked by the text service")

// Request is one completion request.
type Request struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator is the interface every text backend implements.
type Generator interface {
	// Name returns the backend identifier (e.g., "gemini", "openai", "local").
	Name() string

	// Complete sends the prompt and returns the raw response text.
	Complete(ctx context.Context, req Request) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Script generates raw dialogue text for a podcast config.
type Script struct {
	gen     Generator
	timeout time.Duration
}

// New creates a Script that calls gen with a per-call timeout. A zero timeout
// leaves deadlines to the caller's context.
func New(gen Generator, timeout time.Duration) *Script {
	return &Script{gen: gen, timeout: timeout}
}

// Generate asks the text service for a script. The text is expected in
// "Name: utterance" lines but is not guaranteed to be; the parser deals with
// malformed output.
func (s *Script) Generate(ctx context.Context, cfg podcast.Config) (string, error) {
	logger := slog.With("backend", s.gen.Name(), "language", cfg.Language, "duration", cfg.Duration)

	text, err := s.complete(ctx, Request{Prompt: BuildPrompt(cfg), Temperature: 0.8, MaxTokens: 4000})
	if err != nil {
		if errors.Is(err, ErrContentBlocked) {
			return "", podcast.GenerationError(err, "the topic may contain sensitive content that cannot be generated")
		}
		return "", podcast.GenerationError(err, "script request to %s failed", s.gen.Name())
	}

	script := strings.TrimSpace(text)
	if script == "" {
		return "", podcast.GenerationError(nil, "empty script returned by %s", s.gen.Name())
	}
	logger.Info("script generated", "chars", len(script))

	if LooksTruncated(script) {
		logger.Warn("script appears incomplete, requesting a conclusion")
		ending, err := s.complete(ctx, Request{Prompt: BuildConclusionPrompt(cfg, script), Temperature: 0.7, MaxTokens: 1000})
		switch {
		case err != nil:
			logger.Warn("conclusion request failed, keeping script as is", "error", err)
		case strings.TrimSpace(ending) != "":
			script += "\n" + strings.TrimSpace(ending)
		}
	}

	return script, nil
}

func (s *Script) complete(ctx context.Context, req Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.gen.Complete(ctx, req)
}

// Budget is the word and turn target derived from a duration class.
type Budget struct {
	Minutes  int
	MinWords int
	MaxWords int
	MinTurns int
	MaxTurns int
}

// BudgetFor maps a duration class to its budget. Speech runs at roughly 150
// words per minute; a podcast turn averages 15 to 25 words.
func BudgetFor(d podcast.DurationClass) Budget {
	m := d.Minutes()
	b := Budget{Minutes: m, MinWords: m * 120, MaxWords: m * 170}
	b.MinTurns = b.MinWords / 25
	b.MaxTurns = b.MaxWords / 15
	return b
}

func languageInstruction(lang podcast.Language) string {
	switch lang {
	case podcast.LanguageTagalog:
		return "Generate the script entirely in Tagalog language. "
	case podcast.LanguageTaglish:
		return "Generate the script in Taglish (a mix of Tagalog and English). Use both languages naturally as Filipinos would in conversation. "
	default:
		return ""
	}
}

// BuildPrompt renders the script request for cfg.
func BuildPrompt(cfg podcast.Config) string {
	b := BudgetFor(cfg.Duration)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a podcast script on the topic: %s\n\n", cfg.Topic)
	sb.WriteString(languageInstruction(cfg.Language))
	sb.WriteString("The script should:\n")
	fmt.Fprintf(&sb, "- Have exactly two speakers named %q and %q\n", cfg.SpeakerA, cfg.SpeakerB)
	sb.WriteString("- Include an introduction, discussion, and conclusion\n")
	sb.WriteString("- Be conversational, engaging, and informative\n")
	fmt.Fprintf(&sb, "- Be about %d-%d minutes in length when read aloud\n", b.Minutes, b.Minutes+1)
	fmt.Fprintf(&sb, "- Be approximately %d-%d words long, spread over %d-%d speaker turns\n", b.MinWords, b.MaxWords, b.MinTurns, b.MaxTurns)
	fmt.Fprintf(&sb, "- Format each line with the speaker name followed by their dialogue (Example: \"%s: Hello everyone!\")\n", cfg.SpeakerA)
	sb.WriteString("- Include a brief intro where speakers introduce themselves and the podcast topic\n")
	sb.WriteString("- Have a clear structure with logical flow between topics\n")
	sb.WriteString("- ALWAYS end with a proper conclusion and sign-off line\n")
	sb.WriteString("\nPlease provide only the script with no additional comments or formatting.")
	return sb.String()
}

// BuildConclusionPrompt asks for a short ending to a cut-off script.
func BuildConclusionPrompt(cfg podcast.Config, script string) string {
	var sb strings.Builder
	sb.WriteString("This is an incomplete podcast script that needs a proper conclusion.\n")
	sb.WriteString("Please provide ONLY a brief conclusion (1-2 exchanges between speakers) that wraps up the conversation naturally.\n")
	fmt.Fprintf(&sb, "Use the same speaker names (%s and %s), the same \"Name: dialogue\" line format and the same language.\n\n", cfg.SpeakerA, cfg.SpeakerB)
	sb.WriteString("Incomplete script:\n")
	sb.WriteString(script)
	return sb.String()
}

// Trailing Tagalog particles that cannot end a sentence.
var danglingParticles = []string{"ni", "at", "ang", "ng", "sa"}

// LooksTruncated reports whether the script seems cut off mid-sentence.
func LooksTruncated(script string) bool {
	s := strings.TrimRight(script, " \t\r\n\"'*)")
	if s == "" {
		return false
	}
	for _, p := range danglingParticles {
		if strings.HasSuffix(s, " "+p) {
			return true
		}
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return false
	}
	return true
}
