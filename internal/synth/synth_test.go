package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/4xachi/pcast/internal/audio"
	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/tts"
	"github.com/4xachi/pcast/internal/voice"
)

// fakeTTS returns 100ms of 24 kHz audio, or the error chosen by fail for the
// given text and call number. wav overrides the returned file per text and
// delays the per-text latency.
type fakeTTS struct {
	mu       sync.Mutex
	calls    map[string]int
	voices   map[string]string
	fail     func(text string, call int) error
	delay    time.Duration
	delays   map[string]time.Duration
	wav      map[string][]byte
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFake(fail func(text string, call int) error) *fakeTTS {
	return &fakeTTS{calls: map[string]int{}, voices: map[string]string{}, fail: fail}
}

func (f *fakeTTS) Name() string { return "fake" }
func (f *fakeTTS) Close() error { return nil }

func (f *fakeTTS) Synthesize(ctx context.Context, text string, opts tts.Opts) (*tts.Result, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[text]++
	call := f.calls[text]
	f.voices[text] = opts.Voice
	delay := f.delay
	if d, ok := f.delays[text]; ok {
		delay = d
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		if err := f.fail(text, call); err != nil {
			return nil, err
		}
	}
	if b, ok := f.wav[text]; ok {
		return &tts.Result{Audio: b, ContentType: "audio/wav"}, nil
	}
	pcm := audio.Silence(100*time.Millisecond, 24000, 1)
	return &tts.Result{Audio: audio.EncodeWAV(pcm, audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}), ContentType: "audio/wav", SampleRate: 24000, Channels: 1}, nil
}

func (f *fakeTTS) callsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

var (
	unavailable = &tts.StatusError{Backend: "fake", StatusCode: 503}
	badRequest  = &tts.StatusError{Backend: "fake", StatusCode: 400}
)

func testOptions() Options {
	return Options{MaxRetries: 2, Backoff: time.Millisecond, Concurrency: 3, SampleRate: 24000}
}

func testVoices() voice.Pair {
	return voice.Pair{
		A: podcast.VoiceProfile{VoiceID: "charon"},
		B: podcast.VoiceProfile{VoiceID: "kore"},
	}
}

func testTurns(texts ...string) []podcast.ScriptTurn {
	turns := make([]podcast.ScriptTurn, len(texts))
	for i, text := range texts {
		sp := podcast.SpeakerA
		if i%2 == 1 {
			sp = podcast.SpeakerB
		}
		turns[i] = podcast.ScriptTurn{Speaker: sp, Index: i, Text: text}
	}
	return turns
}

func TestSynthesize_RetriesTransient(t *testing.T) {
	fake := newFake(func(text string, call int) error {
		if call < 3 {
			return unavailable
		}
		return nil
	})
	s := New(fake, testOptions())

	seg, err := s.Synthesize(context.Background(), podcast.ScriptTurn{Index: 4, Text: "hello"}, podcast.VoiceProfile{VoiceID: "puck"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.callsFor("hello") != 3 {
		t.Errorf("expected 3 calls, got %d", fake.callsFor("hello"))
	}
	if seg.Index != 4 || seg.SampleRate != 24000 || seg.Duration != 100*time.Millisecond {
		t.Errorf("unexpected segment %+v", seg)
	}
}

func TestSynthesize_GivesUp(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int
	}{
		{"transient exhausts retries", unavailable, 3},
		{"permanent is not retried", badRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake(func(string, int) error { return tt.err })
			_, err := New(fake, testOptions()).Synthesize(context.Background(), podcast.ScriptTurn{Index: 2, Text: "x"}, podcast.VoiceProfile{})
			if fake.callsFor("x") != tt.calls {
				t.Errorf("expected %d calls, got %d", tt.calls, fake.callsFor("x"))
			}
			var pe *podcast.Error
			if !errors.As(err, &pe) || pe.Kind != podcast.KindSynthesis || pe.Index != 2 {
				t.Fatalf("expected synthesis error for turn 2, got %v", err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected cause %v, got %v", tt.err, err)
			}
		})
	}
}

func TestSynthesize_AttemptTimeout(t *testing.T) {
	fake := newFake(nil)
	fake.delay = time.Second
	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond
	opts.MaxRetries = 1

	start := time.Now()
	_, err := New(fake, opts).Synthesize(context.Background(), podcast.ScriptTurn{Text: "slow"}, podcast.VoiceProfile{})
	if podcast.KindOf(err) != podcast.KindSynthesis {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if fake.callsFor("slow") != 2 {
		t.Errorf("expected a timed out attempt to be retried, got %d calls", fake.callsFor("slow"))
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("per-attempt timeout not applied")
	}
}

func TestSynthesizeAll_OrderAndVoices(t *testing.T) {
	fake := newFake(nil)
	// Earlier turns answer slower, so completion order is reversed.
	fake.delays = map[string]time.Duration{"one": 120 * time.Millisecond, "two": 80 * time.Millisecond, "three": 10 * time.Millisecond}
	turns := testTurns("one", "two", "three", "four", "five")

	var events []TurnEvent
	batch, err := New(fake, testOptions()).SynthesizeAll(context.Background(), turns, testVoices(), func(e TurnEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, seg := range batch.Segments {
		if seg.Index != i || seg.Substituted {
			t.Errorf("segment %d: unexpected %+v", i, seg)
		}
	}
	if len(batch.Failures) != 0 {
		t.Errorf("expected no failures, got %v", batch.Failures)
	}
	if len(events) != len(turns) {
		t.Fatalf("expected %d events, got %d", len(turns), len(events))
	}
	if events[0].Index == 0 || events[len(events)-1].Index != 0 {
		t.Errorf("expected turn 0 to finish last, got event order %v", eventOrder(events))
	}
	if fake.voices["one"] != "charon" || fake.voices["two"] != "kore" {
		t.Errorf("speakers rendered with wrong voices: %v", fake.voices)
	}
	if p := fake.peak.Load(); p > 3 {
		t.Errorf("concurrency limit exceeded: %d in flight", p)
	}
}

func eventOrder(events []TurnEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Index
	}
	return out
}

func TestSynthesize_MalformedAudio(t *testing.T) {
	mono := audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
	full := audio.EncodeWAV(audio.Silence(200*time.Millisecond, 24000, 1), mono)

	t.Run("partial trailing frame is dropped", func(t *testing.T) {
		fake := newFake(nil)
		fake.wav = map[string][]byte{"cut": full[:len(full)-1]}
		seg, err := New(fake, testOptions()).Synthesize(context.Background(), podcast.ScriptTurn{Text: "cut"}, podcast.VoiceProfile{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seg.PCM) != 9598 {
			t.Errorf("expected 9598 bytes of whole frames, got %d", len(seg.PCM))
		}
		if _, err := audio.Normalize(seg.PCM, mono, 16000, 1); err != nil {
			t.Errorf("segment does not normalize: %v", err)
		}
	})

	t.Run("unsupported bit depth fails the turn", func(t *testing.T) {
		fake := newFake(nil)
		fake.wav = map[string][]byte{"deep": audio.EncodeWAV(make([]byte, 720), audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 24})}
		_, err := New(fake, testOptions()).Synthesize(context.Background(), podcast.ScriptTurn{Index: 3, Text: "deep"}, podcast.VoiceProfile{})
		if podcast.KindOf(err) != podcast.KindSynthesis {
			t.Fatalf("expected synthesis error, got %v", err)
		}
		if fake.callsFor("deep") != 1 {
			t.Errorf("expected no retry for unusable audio, got %d calls", fake.callsFor("deep"))
		}
	})

	t.Run("batch substitutes the bad turn", func(t *testing.T) {
		fake := newFake(nil)
		fake.wav = map[string][]byte{"deep": audio.EncodeWAV(make([]byte, 720), audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 24})}
		batch, err := New(fake, testOptions()).SynthesizeAll(context.Background(), testTurns("fine", "deep"), testVoices(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !batch.Segments[1].Substituted || len(batch.Failures) != 1 {
			t.Errorf("expected turn 1 substituted, got %+v", batch.Failures)
		}
	})
}

func TestSynthesizeAll_SilenceSubstitution(t *testing.T) {
	fake := newFake(func(text string, _ int) error {
		if text == "this turn keeps failing today" {
			return unavailable
		}
		return nil
	})
	turns := testTurns("fine", "this turn keeps failing today", "also fine")

	var substituted []TurnEvent
	batch, err := New(fake, testOptions()).SynthesizeAll(context.Background(), turns, testVoices(), func(e TurnEvent) {
		if e.Substituted {
			substituted = append(substituted, e)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seg := batch.Segments[1]
	if !seg.Substituted || seg.Duration != 2*time.Second {
		t.Errorf("expected 2s of substituted silence, got %+v", seg)
	}
	if len(seg.PCM) != 2*24000*2 {
		t.Errorf("unexpected placeholder size %d", len(seg.PCM))
	}
	if len(batch.Failures) != 1 || batch.Failures[0].Index != 1 || batch.Failures[0].Attempts != 3 {
		t.Errorf("unexpected failures %+v", batch.Failures)
	}
	if len(substituted) != 1 || substituted[0].Err == nil {
		t.Errorf("expected one substituted event, got %+v", substituted)
	}
}

func TestSynthesizeAll_AllFailed(t *testing.T) {
	fake := newFake(func(string, int) error { return badRequest })
	_, err := New(fake, testOptions()).SynthesizeAll(context.Background(), testTurns("a", "b"), testVoices(), nil)

	var pe *podcast.Error
	if !errors.As(err, &pe) || pe.Kind != podcast.KindSynthesis || pe.Index != -1 {
		t.Fatalf("expected batch synthesis error, got %v", err)
	}
}

func TestSynthesizeAll_Canceled(t *testing.T) {
	fake := newFake(nil)
	fake.delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	batch, err := New(fake, testOptions()).SynthesizeAll(ctx, testTurns("a", "b", "c", "d", "e", "f"), testVoices(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if batch != nil {
		t.Error("expected no batch on cancel")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancel did not abort in-flight turns")
	}
}

func TestSilenceFor(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"", 500 * time.Millisecond},
		{"hi", 500 * time.Millisecond},
		{"one two three", 1200 * time.Millisecond},
		{strings.Repeat("w ", 40), 15 * time.Second},
	}
	for _, tt := range tests {
		if got := SilenceFor(tt.text); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.text, tt.want, got)
		}
	}
}
