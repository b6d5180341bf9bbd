// Package pipeline sequences one podcast generation run.
//
// A run moves Idle → Generating → Parsing → Synthesizing → Assembling → Done.
// Any stage can end it in Failed. The coordinator never retries a stage;
// retries live inside the synthesizer. The caller always gets either a
// complete artifact or a *PipelineError naming the stage that failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/4xachi/pcast/internal/artifact"
	"github.com/4xachi/pcast/internal/audio"
	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/script"
	"github.com/4xachi/pcast/internal/scriptgen"
	"github.com/4xachi/pcast/internal/synth"
	"github.com/4xachi/pcast/internal/voice"
)

// State is a stage of the run state machine.
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateParsing
	StateSynthesizing
	StateAssembling
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "generating", "parsing", "synthesizing", "assembling", "done", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Event is a progress notification. Turn is set for per-turn events during
// Synthesizing; Err is set on the Failed event.
type Event struct {
	RunID     string           `json:"run_id"`
	State     State            `json:"state"`
	Turn      *synth.TurnEvent `json:"turn,omitempty"`
	Completed int              `json:"completed,omitempty"`
	Total     int              `json:"total,omitempty"`
	Err       error            `json:"-"`
	Time      time.Time        `json:"time"`
}

// ProgressFunc observes a run. It is called from the run's goroutines, one
// event at a time.
type ProgressFunc func(Event)

// PipelineError is the single error type returned by Run.
type PipelineError struct {
	RunID string
	Stage State
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("run %s failed while %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Kind returns the error kind of the underlying failure.
func (e *PipelineError) Kind() podcast.Kind { return podcast.KindOf(e.Err) }

// Coordinator wires the pipeline stages. It holds no per-run state, so one
// Coordinator serves concurrent runs.
type Coordinator struct {
	scripts   *scriptgen.Script
	synth     *synth.Synthesizer
	assembler *audio.Assembler
	store     artifact.Store

	now   func() time.Time
	newID func() string
}

// New creates a Coordinator. store may be nil, in which case artifacts are
// only returned to the caller.
func New(scripts *scriptgen.Script, synthesizer *synth.Synthesizer, assembler *audio.Assembler, store artifact.Store) *Coordinator {
	return &Coordinator{
		scripts:   scripts,
		synth:     synthesizer,
		assembler: assembler,
		store:     store,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// run carries the state of one Run call.
type run struct {
	id       string
	progress ProgressFunc
	now      func() time.Time
	log      *slog.Logger
}

func (r *run) emit(evt Event) {
	evt.RunID = r.id
	evt.Time = r.now()
	if r.progress != nil {
		r.progress(evt)
	}
}

func (r *run) enter(s State) {
	r.log.Info("pipeline stage", "state", s)
	r.emit(Event{State: s})
}

func (r *run) fail(ctx context.Context, stage State, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = podcast.CanceledError(ctxErr, "run canceled")
	}
	r.log.Error("pipeline failed", "stage", stage, "kind", podcast.KindOf(err), "error", err)
	r.emit(Event{State: StateFailed, Err: err})
	return &PipelineError{RunID: r.id, Stage: stage, Err: err}
}

// Run generates one podcast. Empty config fields take their defaults. The
// progress callback, if set, sees every state transition and every finished
// turn.
func (c *Coordinator) Run(ctx context.Context, cfg podcast.Config, progress ProgressFunc) (*podcast.Artifact, error) {
	r := &run{id: c.newID(), progress: progress, now: c.now}
	r.log = slog.With("run_id", r.id)
	start := c.now()

	cfg = cfg.WithDefaults()
	r.log.Info("pipeline started", "topic", cfg.Topic, "language", cfg.Language, "accent", cfg.Accent, "duration", cfg.Duration)
	r.emit(Event{State: StateIdle})

	if err := cfg.Validate(); err != nil {
		return nil, r.fail(ctx, StateIdle, err)
	}
	voices, err := voice.ResolvePair(cfg)
	if err != nil {
		return nil, r.fail(ctx, StateIdle, err)
	}
	r.log.Debug("voices resolved", "voice_a", voices.A.VoiceID, "voice_b", voices.B.VoiceID)

	r.enter(StateGenerating)
	raw, err := c.scripts.Generate(ctx, cfg)
	if err != nil {
		return nil, r.fail(ctx, StateGenerating, err)
	}

	r.enter(StateParsing)
	parsed, err := script.Parse(raw, cfg)
	if err != nil {
		return nil, r.fail(ctx, StateParsing, err)
	}
	for _, w := range parsed.Warnings {
		r.log.Warn("script line discarded", "detail", w)
	}
	r.log.Info("script parsed", "turns", len(parsed.Turns))

	r.enter(StateSynthesizing)
	total := len(parsed.Turns)
	completed := 0
	batch, err := c.synth.SynthesizeAll(ctx, parsed.Turns, voices, func(te synth.TurnEvent) {
		completed++
		r.emit(Event{State: StateSynthesizing, Turn: &te, Completed: completed, Total: total})
	})
	if err != nil {
		return nil, r.fail(ctx, StateSynthesizing, err)
	}

	r.enter(StateAssembling)
	art, err := c.assembler.Assemble(batch.Segments, parsed.Turns, cfg)
	if err != nil {
		return nil, r.fail(ctx, StateAssembling, err)
	}

	generated := c.now()
	art.ID = artifact.ID(cfg.Topic, generated, r.id)
	art.GeneratedAt = generated
	art.SubstitutedTurns = batch.Failures
	art.Warnings = append(art.Warnings, parsed.Warnings...)
	for _, f := range batch.Failures {
		art.Warnings = append(art.Warnings, fmt.Sprintf("turn %d replaced with silence after %d attempt(s): %s", f.Index, f.Attempts, f.Error))
	}

	if c.store != nil {
		loc, err := c.store.Save(ctx, art)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil, r.fail(ctx, StateAssembling, err)
			}
			r.log.Warn("saving artifact failed", "store", c.store.Name(), "error", err)
			art.Warnings = append(art.Warnings, fmt.Sprintf("%s store: %v", c.store.Name(), err))
		} else {
			art.Location = loc.Audio
		}
	}

	r.log.Info("pipeline complete",
		"artifact_id", art.ID,
		"turns", len(art.Turns),
		"substituted", len(art.SubstitutedTurns),
		"audio_duration", art.Duration,
		"elapsed", c.now().Sub(start),
	)
	r.emit(Event{State: StateDone})
	return art, nil
}
