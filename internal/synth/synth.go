// Package synth renders script turns into audio segments through a TTS
// backend, with per-turn retries, bounded parallelism and silence
// substitution for turns that cannot be rendered.
package synth

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/4xachi/pcast/internal/audio"
	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/tts"
	"github.com/4xachi/pcast/internal/voice"
)

// Placeholder length bounds for a substituted turn.
const (
	silencePerWord = 400 * time.Millisecond
	minSilence     = 500 * time.Millisecond
	maxSilence     = 15 * time.Second
)

// Options controls the synthesis policy.
type Options struct {
	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries int
	// Backoff is the initial wait between attempts; it grows exponentially.
	Backoff time.Duration
	// Timeout bounds a single attempt. Zero means no per-attempt limit.
	Timeout time.Duration
	// Concurrency is the number of turns synthesized at once.
	Concurrency int
	// SampleRate is the rate of silence placeholders.
	SampleRate int
}

// TurnEvent reports the outcome of one turn.
type TurnEvent struct {
	Index       int             `json:"index"`
	Speaker     podcast.Speaker `json:"speaker"`
	Attempts    int             `json:"attempts"`
	Substituted bool            `json:"substituted"`
	Duration    time.Duration   `json:"duration"`
	Err         error           `json:"-"`
}

// Batch is the result of SynthesizeAll. Segments are ordered by turn ordinal.
type Batch struct {
	Segments []podcast.AudioSegment
	Failures []podcast.TurnFailure
}

// Synthesizer applies the synthesis policy on top of a TTS backend.
type Synthesizer struct {
	backend tts.Synthesizer
	opts    Options
}

// New creates a Synthesizer. Zero-valued options take their defaults.
func New(backend tts.Synthesizer, opts Options) *Synthesizer {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	return &Synthesizer{backend: backend, opts: opts}
}

// Synthesize renders one turn, retrying transient failures. Failures are
// returned as a synthesis *podcast.Error carrying the turn ordinal; a
// canceled context is returned as is.
func (s *Synthesizer) Synthesize(ctx context.Context, turn podcast.ScriptTurn, profile podcast.VoiceProfile) (podcast.AudioSegment, error) {
	seg, _, err := s.synthesize(ctx, turn, profile)
	return seg, err
}

func (s *Synthesizer) synthesize(ctx context.Context, turn podcast.ScriptTurn, profile podcast.VoiceProfile) (podcast.AudioSegment, int, error) {
	opts := tts.Opts{
		Voice:        profile.VoiceID,
		LanguageTag:  profile.LanguageTag,
		Style:        profile.Style,
		SpeakingRate: profile.SpeakingRate,
	}
	log := slog.With("turn", turn.Index, "voice", profile.VoiceID, "backend", s.backend.Name())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.Backoff

	attempts := 0
	seg, err := backoff.Retry(ctx, func() (podcast.AudioSegment, error) {
		attempts++
		seg, err := s.attempt(ctx, turn, opts)
		switch {
		case err == nil:
			return seg, nil
		case ctx.Err() != nil:
			return seg, backoff.Permanent(ctx.Err())
		case !tts.IsTransient(err):
			return seg, backoff.Permanent(err)
		}
		return seg, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn("tts attempt failed, retrying", "attempt", attempts, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return podcast.AudioSegment{}, attempts, ctx.Err()
		}
		return podcast.AudioSegment{}, attempts, podcast.SynthesisError(turn.Index, err, "%d attempt(s) failed", attempts)
	}
	return seg, attempts, nil
}

// attempt makes one bounded TTS call and decodes its WAV output.
func (s *Synthesizer) attempt(ctx context.Context, turn podcast.ScriptTurn, opts tts.Opts) (podcast.AudioSegment, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	res, err := s.backend.Synthesize(ctx, turn.Text, opts)
	if err != nil {
		return podcast.AudioSegment{}, err
	}

	pcm, f, err := audio.DecodeWAV(res.Audio)
	if err != nil {
		return podcast.AudioSegment{}, fmt.Errorf("decoding %s audio: %w", s.backend.Name(), err)
	}
	if err := f.Check(); err != nil {
		return podcast.AudioSegment{}, fmt.Errorf("%s audio: %w", s.backend.Name(), err)
	}
	// Truncated streams can end mid-frame.
	pcm = f.WholeFrames(pcm)
	if len(pcm) == 0 {
		return podcast.AudioSegment{}, fmt.Errorf("%s returned empty audio", s.backend.Name())
	}
	return podcast.AudioSegment{
		Index:         turn.Index,
		PCM:           pcm,
		SampleRate:    f.SampleRate,
		Channels:      f.Channels,
		BitsPerSample: f.BitsPerSample,
		Duration:      f.Duration(len(pcm)),
	}, nil
}

// SynthesizeAll renders every turn with at most Concurrency calls in flight.
// A turn that still fails after its retries is replaced by silence and listed
// in Batch.Failures. onTurn, if set, is called once per turn, never
// concurrently. The batch fails only when every turn failed or ctx ends.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, turns []podcast.ScriptTurn, voices voice.Pair, onTurn func(TurnEvent)) (*Batch, error) {
	if len(turns) == 0 {
		return nil, podcast.SynthesisError(-1, nil, "no turns to synthesize")
	}

	var (
		mu       sync.Mutex
		segments = make([]podcast.AudioSegment, len(turns))
		failures []podcast.TurnFailure
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, turn := range turns {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			seg, attempts, err := s.synthesize(gctx, turn, voices.For(turn.Speaker))
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}

			evt := TurnEvent{Index: turn.Index, Speaker: turn.Speaker, Attempts: attempts, Err: err}
			if err != nil {
				seg = s.placeholder(turn)
				evt.Substituted = true
				slog.Warn("turn substituted with silence", "turn", turn.Index, "attempts", attempts, "silence", seg.Duration, "error", err)
			}
			evt.Duration = seg.Duration

			mu.Lock()
			defer mu.Unlock()
			segments[i] = seg
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				failures = append(failures, podcast.TurnFailure{
					Index:    turn.Index,
					Speaker:  turn.Speaker,
					Attempts: attempts,
					Error:    err.Error(),
				})
			}
			if onTurn != nil {
				onTurn(evt)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(failures) == len(turns) {
		return nil, podcast.SynthesisError(-1, firstErr, "all %d turns failed", len(turns))
	}

	slices.SortFunc(failures, func(x, y podcast.TurnFailure) int { return cmp.Compare(x.Index, y.Index) })
	return &Batch{Segments: segments, Failures: failures}, nil
}

// placeholder returns a silent segment sized to the turn's word count.
func (s *Synthesizer) placeholder(turn podcast.ScriptTurn) podcast.AudioSegment {
	d := SilenceFor(turn.Text)
	pcm := audio.Silence(d, s.opts.SampleRate, 1)
	return podcast.AudioSegment{
		Index:         turn.Index,
		PCM:           pcm,
		SampleRate:    s.opts.SampleRate,
		Channels:      1,
		BitsPerSample: 16,
		Duration:      d,
		Substituted:   true,
	}
}

// SilenceFor returns the placeholder length for text: 400ms per word,
// clamped to [500ms, 15s].
func SilenceFor(text string) time.Duration {
	d := time.Duration(len(strings.Fields(text))) * silencePerWord
	return min(max(d, minSilence), maxSilence)
}
